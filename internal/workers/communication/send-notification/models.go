package sendnotification

type Input struct {
	RecipientID string                 `json:"recipientId"`
	Type        string                 `json:"type"`
	Priority    string                 `json:"priority,omitempty"`
	Subject     string                 `json:"subject,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Email       string                 `json:"email,omitempty"`
	Phone       string                 `json:"phone,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"` // "sent", "failed", "stored"
	Channels       []string `json:"channels"`
	SentAt         string   `json:"sentAt"` // ISO 8601
}

// Notification types
const (
	TypeEpisodeUnlocked      = "episode_unlocked"
	TypeDonationGoalReached  = "donation_goal_reached"
	TypeSubscriptionExpiring = "subscription_expiring"
	TypeCommentReply         = "comment_reply"
)

// Statuses
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
	StatusStored = "stored"
)

const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

const PriorityHigh = "high"
