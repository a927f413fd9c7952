package workflow

// Trigger represents an action that can cause a state transition
type Trigger string

const (
	TriggerApprove       Trigger = "approve"
	TriggerReject        Trigger = "reject"
	TriggerRequestInfo   Trigger = "request_info"
	TriggerResubmit      Trigger = "resubmit"
	TriggerMarkPurchased Trigger = "mark_purchased"
	TriggerCartSucceeded Trigger = "cart_succeeded"
	TriggerCartFailed    Trigger = "cart_failed"
	TriggerRetryCart     Trigger = "retry_cart"
	TriggerCancel        Trigger = "cancel"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
