package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectStats(t *testing.T) {
	requests := []*PurchaseRequest{
		{Status: StatusPending, Urgency: UrgencyNormal},
		{Status: StatusPending, Urgency: UrgencyNormal},
		{Status: StatusPending, Urgency: UrgencyNormal},
		{Status: StatusPending, Urgency: UrgencyUrgent},
		{Status: StatusApproved, Urgency: UrgencyUrgent, AddedToCart: true},
		{Status: StatusPurchased, AddedToCart: true},
	}

	s := ProjectStats(requests)

	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 4, s.Pending)
	assert.Equal(t, 1, s.Urgent)
	assert.Equal(t, 1, s.Approved)
	assert.Equal(t, 1, s.AmazonInCart)
	assert.Equal(t, 1, s.Purchased)
	assert.Equal(t, ProjectStats(requests), s)
}

func TestFormatRequestNumber(t *testing.T) {
	assert.Equal(t, "REQ-2026-0001", FormatRequestNumber(2026, 1))
	assert.Equal(t, "REQ-2026-12345", FormatRequestNumber(2026, 12345))
}
