package workflow

// State represents a workflow state in the purchase request lifecycle
type State string

const (
	StatePending       State = "pending"
	StateInfoRequested State = "info_requested"
	StateApproved      State = "approved"
	StateRejected      State = "rejected"
	StatePurchased     State = "purchased"
	StateCancelled     State = "cancelled"
)

var validStates = map[State]bool{
	StatePending:       true,
	StateInfoRequested: true,
	StateApproved:      true,
	StateRejected:      true,
	StatePurchased:     true,
	StateCancelled:     true,
}

var terminalStates = map[State]bool{
	StateRejected:  true,
	StatePurchased: true,
	StateCancelled: true,
}

// IsTerminal returns true if no further transitions leave the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}
