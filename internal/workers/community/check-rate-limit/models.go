package checkratelimit

type Input struct {
	ViewerID string `json:"viewerId"`
	Action   string `json:"action"`
}

type Output struct {
	Allowed           bool   `json:"allowed"`
	Action            string `json:"action"`
	Limit             int    `json:"limit"`
	Remaining         int    `json:"remaining"`
	RetryAfterSeconds int    `json:"retryAfterSeconds"`
}
