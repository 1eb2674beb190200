// internal/access/model.go
package access

import "time"

// Viewer is the canonical snapshot of the person asking for content.
type Viewer struct {
	ID                    string
	Authenticated         bool
	SubscriptionTier      Tier
	SubscriptionExpiresAt *time.Time
}

// EffectiveTier collapses the stored tier to free when the subscription is absent or expired.
func (v Viewer) EffectiveTier(now time.Time) Tier {
	if v.SubscriptionExpiresAt == nil || !v.SubscriptionExpiresAt.After(now) {
		return TierFree
	}
	if v.SubscriptionTier == "" {
		return TierFree
	}
	return v.SubscriptionTier
}

// HasActiveSubscription reports whether the viewer holds a non-expired subscription.
func (v Viewer) HasActiveSubscription(now time.Time) bool {
	return v.SubscriptionExpiresAt != nil && v.SubscriptionExpiresAt.After(now)
}

// ContentItem is the canonical snapshot of a manga/anime title.
// Amounts are in minor currency units.
type ContentItem struct {
	ID                string
	Title             string
	TierBuckets       []Tier
	TotalEpisodes     int
	AvailableEpisodes int
	CurrentDonations  int64
	DonationGoal      int64
}

// RequiredTier resolves the tier a viewer needs to open the item.
func (c ContentItem) RequiredTier() Tier {
	return ResolveRequiredTier(c.TierBuckets)
}
