// internal/store/models.go
package store

import (
	"time"

	"mangastream-workers/internal/access"
)

// SubscriptionRow is a user_subscriptions row as cached in Redis.
type SubscriptionRow struct {
	UserID    string `json:"userId"`
	Tier      string `json:"tier"`
	ExpiresAt string `json:"expiresAt"`
	IsValid   bool   `json:"isValid"`
}

// Viewer converts the row into the evaluator's canonical viewer.
func (r SubscriptionRow) Viewer(authenticated bool) access.Viewer {
	return access.NormalizeViewer(access.RawViewer{
		ID:            r.UserID,
		Authenticated: authenticated,
		Tier:          r.Tier,
		ExpiresAt:     r.ExpiresAt,
		IsValid:       r.IsValid,
	})
}

// MangaRow is a manga row joined with its tier buckets.
type MangaRow struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	RequiredTier      string   `json:"requiredTier,omitempty"`
	TierBuckets       []string `json:"tierBuckets,omitempty"`
	TotalEpisodes     int      `json:"totalEpisodes"`
	AvailableEpisodes int      `json:"availableEpisodes"`
	CurrentDonations  int64    `json:"currentDonations"`
	DonationGoal      int64    `json:"donationGoal"`
}

// ContentItem converts the row into the evaluator's canonical content item.
func (r MangaRow) ContentItem() access.ContentItem {
	return access.NormalizeContent(access.RawContent{
		ID:                r.ID,
		Title:             r.Title,
		RequiredTier:      r.RequiredTier,
		TierBuckets:       r.TierBuckets,
		TotalEpisodes:     r.TotalEpisodes,
		AvailableEpisodes: r.AvailableEpisodes,
		CurrentDonations:  r.CurrentDonations,
		DonationGoal:      r.DonationGoal,
	})
}

type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentCompleted || s == PaymentCancelled
}

// Payment is one ledger entry. Amount is in minor currency units.
type Payment struct {
	ID        string
	ViewerID  string
	ContentID string
	Amount    int64
	Currency  string
	Status    PaymentStatus
	Provider  string
	CreatedAt time.Time
}

// LedgerResult reports what Record did and the title's donation totals afterwards.
type LedgerResult struct {
	Duplicate        bool
	Applied          bool
	CurrentDonations int64
	DonationGoal     int64
}
