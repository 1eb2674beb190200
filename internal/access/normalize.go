// internal/access/normalize.go
package access

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// RawViewer is a viewer row as it comes out of storage: the expiry is free text.
type RawViewer struct {
	ID            string
	Authenticated bool
	Tier          string
	ExpiresAt     string
	IsValid       bool
}

// RawContent is a content row plus the tier buckets it is listed under.
type RawContent struct {
	ID                string
	Title             string
	RequiredTier      string
	TierBuckets       []string
	TotalEpisodes     int
	AvailableEpisodes int
	CurrentDonations  int64
	DonationGoal      int64
}

var expiryLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseExpiry parses a subscription expiry. Empty or malformed input returns nil,
// which callers treat as "no active subscription".
func ParseExpiry(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// NormalizeViewer maps a stored viewer row into the canonical Viewer.
// A row flagged invalid keeps its tier but loses its expiry.
func NormalizeViewer(raw RawViewer) Viewer {
	v := Viewer{
		ID:               raw.ID,
		Authenticated:    raw.Authenticated,
		SubscriptionTier: Tier(raw.Tier),
	}
	if raw.IsValid {
		v.SubscriptionExpiresAt = ParseExpiry(raw.ExpiresAt)
	}
	return v
}

// NormalizeContent maps a stored content row into the canonical ContentItem.
// The row's own required_tier column is folded into the bucket list.
func NormalizeContent(raw RawContent) ContentItem {
	buckets := make([]Tier, 0, len(raw.TierBuckets)+1)
	if raw.RequiredTier != "" {
		buckets = append(buckets, Tier(raw.RequiredTier))
	}
	for _, b := range raw.TierBuckets {
		buckets = append(buckets, Tier(b))
	}
	return ContentItem{
		ID:                raw.ID,
		Title:             raw.Title,
		TierBuckets:       buckets,
		TotalEpisodes:     raw.TotalEpisodes,
		AvailableEpisodes: raw.AvailableEpisodes,
		CurrentDonations:  raw.CurrentDonations,
		DonationGoal:      raw.DonationGoal,
	}
}

// ViewerFromMap reads a loosely shaped viewer object (job variables, REST payloads).
// Both camelCase and snake_case keys are accepted. A missing validity flag means valid.
func ViewerFromMap(m map[string]interface{}) Viewer {
	isValid := true
	if _, ok := lookup(m, "isValid", "is_valid"); ok {
		isValid = boolField(m, "isValid", "is_valid")
	}
	return NormalizeViewer(RawViewer{
		ID:            stringField(m, "id", "userId", "user_id"),
		Authenticated: boolField(m, "authenticated", "isAuthenticated", "is_authenticated"),
		Tier:          stringField(m, "subscriptionTier", "subscription_tier", "tier"),
		ExpiresAt: stringField(m,
			"subscriptionExpiresAt", "subscription_expires_at", "expiresAt", "expires_at"),
		IsValid: isValid,
	})
}

// ContentFromMap reads a loosely shaped content object.
func ContentFromMap(m map[string]interface{}) ContentItem {
	raw := RawContent{
		ID:                stringField(m, "id", "mangaId", "manga_id", "contentId", "content_id"),
		Title:             stringField(m, "title"),
		RequiredTier:      stringField(m, "requiredTier", "required_tier", "minTier", "min_tier"),
		TierBuckets:       stringSliceField(m, "tierBuckets", "tier_buckets"),
		TotalEpisodes:     int(intField(m, "totalEpisodes", "total_episodes")),
		AvailableEpisodes: int(intField(m, "availableEpisodes", "available_episodes")),
		CurrentDonations:  intField(m, "currentDonations", "current_donations"),
		DonationGoal:      intField(m, "donationGoal", "donation_goal"),
	}
	return NormalizeContent(raw)
}

func lookup(m map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(m map[string]interface{}, keys ...string) string {
	v, ok := lookup(m, keys...)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return ""
	}
}

func boolField(m map[string]interface{}, keys ...string) bool {
	v, ok := lookup(m, keys...)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	default:
		return false
	}
}

func intField(m map[string]interface{}, keys ...string) int64 {
	v, ok := lookup(m, keys...)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return int64(f)
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return int64(f)
		}
	}
	return 0
}

func stringSliceField(m map[string]interface{}, keys ...string) []string {
	v, ok := lookup(m, keys...)
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []string:
		return s
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
