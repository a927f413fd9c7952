package entity

// RequestStatus is the persisted lifecycle status of a purchase request
type RequestStatus string

// Status constants for PurchaseRequest
const (
	StatusPending       RequestStatus = "pending"
	StatusInfoRequested RequestStatus = "info_requested"
	StatusApproved      RequestStatus = "approved"
	StatusRejected      RequestStatus = "rejected"
	StatusPurchased     RequestStatus = "purchased"
	StatusCancelled     RequestStatus = "cancelled"
)

// String returns the string representation of the status
func (s RequestStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is one of the defined constants
func (s RequestStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInfoRequested, StatusApproved,
		StatusRejected, StatusPurchased, StatusCancelled:
		return true
	default:
		return false
	}
}

// Urgency marks how quickly a request needs attention
type Urgency string

// Urgency constants
const (
	UrgencyNormal Urgency = "normal"
	UrgencyUrgent Urgency = "urgent"
)

// IsValid returns true if the urgency is one of the defined constants
func (u Urgency) IsValid() bool {
	return u == UrgencyNormal || u == UrgencyUrgent
}

// HistoryAction identifies what happened in a history entry
type HistoryAction string

// History action constants
const (
	ActionCreated     HistoryAction = "created"
	ActionApproved    HistoryAction = "approved"
	ActionRejected    HistoryAction = "rejected"
	ActionReturned    HistoryAction = "returned" // info requested from the requester
	ActionResubmitted HistoryAction = "resubmitted"
	ActionPurchased   HistoryAction = "purchased"
	ActionCartAdded   HistoryAction = "cart_added"
	ActionCartFailed  HistoryAction = "cart_failed"
	ActionCartRetry   HistoryAction = "cart_retry"
	ActionCancelled   HistoryAction = "cancelled"
)

// Approved order filters used by the admin order views
const (
	OrderFilterAll           = "all"
	OrderFilterAmazonCart    = "amazon_cart"
	OrderFilterPendingManual = "pending_manual"
	OrderFilterPurchased     = "purchased"
)

// DefaultCurrency is applied when a price is known but no currency was given
const DefaultCurrency = "MXN"

// SystemUserID is recorded as the actor for system-driven history entries
const SystemUserID int64 = 0
