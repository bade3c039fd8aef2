package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawMessage(lines ...string) []byte {
	return []byte(strings.Join(lines, "\r\n"))
}

func TestParse_MultipartWithPDF(t *testing.T) {
	// Arrange
	raw := rawMessage(
		"Message-ID: <abc123@mail.example.com>",
		"Date: Thu, 09 Jan 2025 10:15:00 +0530",
		`From: "Contracts Team" <contracts@example.com>`,
		"To: tenant@example.com",
		"Subject: Your tenancy agreement K15A4032411202 has been completed",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="XYZ"`,
		"",
		"--XYZ",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Please find the signed copy attached.",
		"--XYZ",
		"Content-Type: application/pdf",
		`Content-Disposition: attachment; filename="Agreement.PDF"`,
		"Content-Transfer-Encoding: base64",
		"",
		"JVBERi0xLjQK",
		"--XYZ--",
		"",
	)

	// Act
	msg, err := Parse(raw)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "<abc123@mail.example.com>", msg.MessageID)
	assert.Equal(t, "Your tenancy agreement K15A4032411202 has been completed", msg.Subject)
	assert.Equal(t, "contracts@example.com", msg.FromAddress)
	assert.Contains(t, msg.FromHeader, "Contracts Team")
	assert.Equal(t, "tenant@example.com", msg.ToAddress)
	require.NotNil(t, msg.SentAt)
	assert.Equal(t, 2025, msg.SentAt.Year())
	assert.Equal(t, "Please find the signed copy attached.", msg.Body)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "Agreement.PDF", msg.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)
	assert.Equal(t, "%PDF-1.4\n", string(msg.Attachments[0].Content))
}

func TestParse_HTMLOnlyAndBadDate(t *testing.T) {
	// Arrange
	raw := rawMessage(
		"Date: not a date",
		"From: sign@zoho.example",
		"To: Tenant <tenant@example.com>",
		"Subject: Signature request for K15A4032411202",
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<html><head><style>p{color:red}</style></head><body><p>Start signing now</p></body></html>",
		"",
	)

	// Act
	msg, err := Parse(raw)

	// Assert
	require.NoError(t, err)
	assert.Nil(t, msg.SentAt)
	assert.Empty(t, msg.MessageID)
	assert.Contains(t, msg.Body, "Start signing now")
	assert.NotContains(t, msg.Body, "<p>")
	assert.NotContains(t, msg.Body, "color:red")
	assert.Empty(t, msg.Attachments)
}

func TestExtractAddress(t *testing.T) {
	assert.Equal(t, "owner@example.com", ExtractAddress(`"Owner, Flat 2" <owner@example.com>`))
	assert.Equal(t, "owner@example.com", ExtractAddress("  owner@example.com "))
	assert.Equal(t, "undisclosed-recipients:;", ExtractAddress("undisclosed-recipients:;"))
	assert.Empty(t, ExtractAddress(""))
}

func TestHTMLToPlainText_KeepsLinkTargets(t *testing.T) {
	html := `<body><p>Review the document</p><a href="https://sign.zoho.in/signform?id=1">Start Signing</a></body>`

	text, err := HTMLToPlainText(html)

	require.NoError(t, err)
	assert.Equal(t, "Review the document\nStart Signing https://sign.zoho.in/signform?id=1", text)
}

func TestHTMLToPlainText_LinkTextAlreadyShowsTarget(t *testing.T) {
	html := `<div>Open <a href="https://sign.zoho.in/s/1">https://sign.zoho.in/s/1</a></div>`

	text, err := HTMLToPlainText(html)

	require.NoError(t, err)
	assert.Equal(t, "Open https://sign.zoho.in/s/1", text)
}

func TestParse_HTMLOnlyBodyKeepsHref(t *testing.T) {
	// Arrange
	raw := rawMessage(
		"Message-ID: <sign-1@zoho.example>",
		"From: sign@zoho.example",
		"To: tenant@example.com",
		"Subject: Signature request for K15A4032411202",
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=utf-8",
		"",
		`<html><body><p>Start signing</p><a href="https://sign.zoho.in/signform?id=1">Sign now</a></body></html>`,
		"",
	)

	// Act
	msg, err := Parse(raw)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Start signing\nSign now https://sign.zoho.in/signform?id=1", msg.Body)
	assert.NotContains(t, msg.Body, "( https://")
}

func TestParse_AlternativePrefersPlainText(t *testing.T) {
	// Arrange
	raw := rawMessage(
		"From: contracts@example.com",
		"Subject: K15A4032411202",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="ALT"`,
		"",
		"--ALT",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"plain version",
		"--ALT",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>html version</p>",
		"--ALT--",
		"",
	)

	// Act
	msg, err := Parse(raw)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "plain version", msg.Body)
}
