package entity

// StatsSnapshot is the derived dashboard view over a set of requests
type StatsSnapshot struct {
	Total         int `json:"total"`
	Pending       int `json:"pending"`
	Approved      int `json:"approved"`
	Rejected      int `json:"rejected"`
	InfoRequested int `json:"info_requested"`
	Purchased     int `json:"purchased"`
	Cancelled     int `json:"cancelled"`
	Urgent        int `json:"urgent"`
	AmazonInCart  int `json:"amazon_in_cart"`
}

// StatsScope restricts which requests feed a snapshot.
// A zero RequesterID means every request.
type StatsScope struct {
	RequesterID int64
}

// ProjectStats derives a snapshot from an in-memory record set
func ProjectStats(requests []*PurchaseRequest) *StatsSnapshot {
	s := &StatsSnapshot{}
	for _, r := range requests {
		s.Total++
		switch r.Status {
		case StatusPending:
			s.Pending++
			if r.Urgency == UrgencyUrgent {
				s.Urgent++
			}
		case StatusApproved:
			s.Approved++
			if r.AddedToCart {
				s.AmazonInCart++
			}
		case StatusRejected:
			s.Rejected++
		case StatusInfoRequested:
			s.InfoRequested++
		case StatusPurchased:
			s.Purchased++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	return s
}
