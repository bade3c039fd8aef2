package ingestion

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackfill_FiltersToTargetBooking(t *testing.T) {
	// Arrange
	other := "K01A99924012026"
	mailbox := newFakeMailbox(map[string][]testMail{
		"Sent": {
			{messageID: "<a@kots>", subject: "Tenancy Agreement " + booking + " Has Been Completed"},
			{messageID: "<b@kots>", subject: "Lease " + other + " has been completed", body: "Replaces booking " + booking},
			{messageID: "<c@kots>", subject: "Kots requests you to sign Tenancy Agreement " + other},
		},
	})
	h := newHarness(mailbox)

	// Act
	result := NewBackfill(h.deps).Run(context.Background(), []string{booking, other}, nil)

	// Assert
	require.Empty(t, result.Error)
	assert.Equal(t, 2, result.Bookings[booking].Fetched)
	assert.Equal(t, 1, result.Bookings[booking].New)
	assert.Equal(t, 2, result.Bookings[other].Fetched)
	assert.Equal(t, 2, result.Bookings[other].New)
	assert.Equal(t, 4, result.Total.Fetched)
	assert.Equal(t, 3, result.Total.New)
	assert.Len(t, h.documents.documents, 3)
	assert.Empty(t, h.cursors.stored)
}

func TestBackfill_FolderOverride(t *testing.T) {
	// Arrange
	mailbox := newFakeMailbox(map[string][]testMail{
		"Sent":    {{messageID: "<a@kots>", subject: "Tenancy Agreement " + booking + " Has Been Completed"}},
		"Archive": {},
	})
	h := newHarness(mailbox)

	// Act
	result := NewBackfill(h.deps).Run(context.Background(), []string{booking}, []string{"Archive"})

	// Assert
	require.Empty(t, result.Error)
	assert.Equal(t, []string{"Archive"}, mailbox.selects)
	assert.Zero(t, result.Total.New)
}

func TestReadBookingIDs(t *testing.T) {
	input := `# bookings to import
K15A4032411202

k15a4032411202
K01A99924012026
K15A4032411202
  K12345678
not-a-booking
K1234
`

	ids, err := ReadBookingIDs(strings.NewReader(input))

	require.NoError(t, err)
	assert.Equal(t, []string{"K15A4032411202", "K01A99924012026", "K12345678"}, ids)
}
