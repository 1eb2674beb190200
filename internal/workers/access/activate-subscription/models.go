package activatesubscription

type Input struct {
	ViewerID     string `json:"viewerId"`
	Tier         string `json:"tier"`
	DurationDays int    `json:"durationDays"`
}

type Output struct {
	ViewerID     string `json:"viewerId"`
	Tier         string `json:"tier"`
	PreviousTier string `json:"previousTier,omitempty"`
	ExpiresAt    string `json:"expiresAt"`
	Extended     bool   `json:"extended"`
}
