package validatesubscription

type Input struct {
	ViewerID string `json:"viewerId"`
}

type Output struct {
	ViewerID      string `json:"viewerId"`
	IsActive      bool   `json:"isActive"`
	Tier          string `json:"tier"`
	EffectiveTier string `json:"effectiveTier"`
	ExpiresAt     string `json:"expiresAt,omitempty"` // RFC 3339, UTC
}
