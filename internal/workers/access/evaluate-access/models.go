package evaluateaccess

// Input carries either ids to resolve from storage or inline snapshots.
// An inline viewer snapshot is authoritative, including its authenticated flag.
type Input struct {
	ViewerID    string                 `json:"viewerId"`
	AccessToken string                 `json:"accessToken,omitempty"`
	Viewer      map[string]interface{} `json:"viewer,omitempty"`
	ContentID   string                 `json:"contentId"`
	Content     map[string]interface{} `json:"content,omitempty"`
}

type Output struct {
	Allowed       bool   `json:"allowed"`
	ReasonCode    string `json:"reasonCode,omitempty"`
	RequiredTier  string `json:"requiredTier,omitempty"`
	ViewerTier    string `json:"viewerTier,omitempty"`
	EffectiveTier string `json:"effectiveTier,omitempty"`
	ContentID     string `json:"contentId"`
}
