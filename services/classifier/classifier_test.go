package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotsworld/mailsync/internal/enum"
)

func TestBookingID(t *testing.T) {
	assert.True(t, IsBookingID("K12345678"))
	assert.True(t, IsBookingID("K15A4032411202"))
	assert.True(t, IsBookingID("K"+"12345678901234567890"))
	assert.False(t, IsBookingID("K1234567"))
	assert.False(t, IsBookingID("K"+"123456789012345678901"))
	assert.False(t, IsBookingID("k15a4032411202"))

	assert.Equal(t, "K15A4032411202", ExtractBookingID("Agreement for K15A4032411202 has been completed"))
	assert.Empty(t, ExtractBookingID("Agreement for K1234 has been completed"))
	assert.Equal(t, "K01A99924012026", BookingFrom("Signature request", "booking K01A99924012026"))
	assert.Equal(t, "K15A4032411202", BookingFrom("K15A4032411202", "booking K01A99924012026"))
}

func TestClassifyDocument(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		body     string
		expected enum.DocumentCategory
		ok       bool
	}{
		{
			name:     "cir prefix",
			subject:  "Kitchen Flat Condition :: Part A :: K15A4032411202",
			expected: enum.DocumentCIR,
			ok:       true,
		},
		{
			name:     "cir wins over completed",
			subject:  "Bathrooms Flat Condition :: K15A4032411202 has been completed",
			expected: enum.DocumentCIR,
			ok:       true,
		},
		{
			name:     "signed",
			subject:  "Tenancy Agreement K15A4032411202 Has Been Completed",
			expected: enum.DocumentSigned,
			ok:       true,
		},
		{
			name:     "sign request by subject",
			subject:  "Kots requests you to sign Tenancy Agreement K15A4032411202",
			expected: enum.DocumentSignRequest,
			ok:       true,
		},
		{
			name:     "sign request by body",
			subject:  "Request for K15A4032411202",
			body:     "Please review via Zoho Sign and start signing.",
			expected: enum.DocumentSignRequest,
			ok:       true,
		},
		{
			name:    "request without phrase",
			subject: "Request for parking K15A4032411202",
			body:    "See you soon",
		},
		{
			name:    "phrase without request",
			subject: "Sign tenant form",
		},
		{
			name:    "ticket mail is not a document",
			subject: "[## 275482 ##] Plumbing :: K15A4032411202",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, ok := ClassifyDocument(tt.subject, tt.body)

			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, category)
		})
	}
}

func TestExtractSignURL(t *testing.T) {
	body := `Logo https://static.zohocdn.com/sign/logo.png
View https://sign.zoho.in/zsguest?action_type=VIEW
Sign https://sign.zoho.in/signform?id=42&token=abc
Style https://sign.zoho.in/sign.css`

	link := ExtractSignURL(body)

	require.NotNil(t, link)
	assert.Equal(t, "https://sign.zoho.in/signform?id=42&token=abc", *link)
}

func TestExtractSignURL_FallsBackToFirstCandidate(t *testing.T) {
	link := ExtractSignURL(`Open "https://sign.zoho.in/zsguest?action_type=SIGN" or https://example.com/sign`)

	require.NotNil(t, link)
	assert.Equal(t, "https://sign.zoho.in/zsguest?action_type=SIGN", *link)
}

func TestExtractSignURL_None(t *testing.T) {
	assert.Nil(t, ExtractSignURL("https://example.com/contract https://zoho.com/mail"))
	assert.Nil(t, ExtractSignURL(""))
}

func TestParseTicketSubject(t *testing.T) {
	parsed, ok := ParseTicketSubject("[## 275482 ##] AO-Flat Customization and Installations :: AC Installation :: K15A4032411202")
	require.True(t, ok)
	assert.Equal(t, "275482", parsed.TicketNumber)
	assert.Equal(t, "AO-Flat Customization and Installations", parsed.Classification)
	require.NotNil(t, parsed.Category)
	assert.Equal(t, "AC Installation", *parsed.Category)
	assert.Equal(t, "K15A4032411202", ExtractBookingID("[## 275482 ##] AO-Flat Customization and Installations :: AC Installation :: K15A4032411202"))

	reply, ok := ParseTicketSubject("Re:[## 474940 ##] Update/Remove Co-Occupants :: K01A99924012026")
	require.True(t, ok)
	assert.Equal(t, "474940", reply.TicketNumber)
	assert.Equal(t, "Update/Remove Co-Occupants", reply.Classification)
	assert.Nil(t, reply.Category)

	noBrackets, ok := ParseTicketSubject("## 1001 ## Electrical :: K01A99924012026")
	require.True(t, ok)
	assert.Equal(t, "1001", noBrackets.TicketNumber)
	assert.Equal(t, "Electrical", noBrackets.Classification)

	_, ok = ParseTicketSubject("Plumbing :: K01A99924012026")
	assert.False(t, ok)
}

func TestParseClosureSubject(t *testing.T) {
	number, ok := ParseClosureSubject("Issue Closed - Ticket no 474699")
	require.True(t, ok)
	assert.Equal(t, "474699", number)

	number, ok = ParseClosureSubject("RE: issue closed ticket NO474700")
	require.True(t, ok)
	assert.Equal(t, "474700", number)

	_, ok = ParseClosureSubject("Issue Closed")
	assert.False(t, ok)
	_, ok = ParseClosureSubject("Ticket no 474699 updated")
	assert.False(t, ok)
}
