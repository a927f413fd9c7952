package entity

import "time"

// RequestHistory is one append-only audit entry of a purchase request
type RequestHistory struct {
	ID        int64          `json:"id"`
	RequestID int64          `json:"request_id"`
	UserID    int64          `json:"user_id"`
	Action    HistoryAction  `json:"action"`
	Comment   string         `json:"comment,omitempty"`
	OldStatus *RequestStatus `json:"old_status"`
	NewStatus RequestStatus  `json:"new_status"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewHistory builds a history entry for a transition from old to new.
// A nil old status marks the creation entry.
func NewHistory(requestID, userID int64, action HistoryAction, old *RequestStatus, new RequestStatus, comment string) *RequestHistory {
	return &RequestHistory{
		RequestID: requestID,
		UserID:    userID,
		Action:    action,
		Comment:   comment,
		OldStatus: old,
		NewStatus: new,
		CreatedAt: time.Now().UTC(),
	}
}
