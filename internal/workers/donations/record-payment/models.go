package recordpayment

// Input carries the amount in minor currency units (cents).
type Input struct {
	PaymentID string `json:"paymentId"`
	ViewerID  string `json:"viewerId"`
	ContentID string `json:"contentId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	Provider  string `json:"provider"`
}

type Output struct {
	PaymentID        string  `json:"paymentId"`
	Recorded         bool    `json:"recorded"`
	Duplicate        bool    `json:"duplicate"`
	CurrentDonations int64   `json:"currentDonations"`
	DonationGoal     int64   `json:"donationGoal"`
	ProgressPercent  float64 `json:"progressPercent"`
	GoalReached      bool    `json:"goalReached"`
	GoalJustReached  bool    `json:"goalJustReached"`
}
