package event

// Type identifies the type of domain event
type Type string

const (
	TypeRequestSubmitted     Type = "request.submitted"
	TypeRequestApproved      Type = "request.approved"
	TypeRequestRejected      Type = "request.rejected"
	TypeRequestInfoRequested Type = "request.info_requested"
	TypeRequestResubmitted   Type = "request.resubmitted"
	TypeRequestPurchased     Type = "request.purchased"
	TypeRequestCancelled     Type = "request.cancelled"
	TypeCartAdded            Type = "cart.added"
	TypeCartFailed           Type = "cart.failed"
	TypeCartRetried          Type = "cart.retried"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequestSubmitted,
		TypeRequestApproved,
		TypeRequestRejected,
		TypeRequestInfoRequested,
		TypeRequestResubmitted,
		TypeRequestPurchased,
		TypeRequestCancelled,
		TypeCartAdded,
		TypeCartFailed,
		TypeCartRetried:
		return true
	default:
		return false
	}
}
