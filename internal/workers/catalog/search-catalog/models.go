package searchcatalog

type Input struct {
	Query      string `json:"query"`
	Genre      string `json:"genre"`
	Status     string `json:"status"`
	Type       string `json:"type"`
	Page       int    `json:"page"`
	Size       int    `json:"size"`
	ViewerTier string `json:"viewerTier,omitempty"`
}

type Result struct {
	ID           string                 `json:"id"`
	Score        float64                `json:"score"`
	RequiredTier string                 `json:"requiredTier"`
	Locked       *bool                  `json:"locked,omitempty"`
	Document     map[string]interface{} `json:"document"`
}

type Output struct {
	Results   []Result `json:"results"`
	TotalHits int64    `json:"totalHits"`
	Page      int      `json:"page"`
	Size      int      `json:"size"`
	MaxScore  float64  `json:"maxScore"`
	Took      int64    `json:"took"` // milliseconds
}
