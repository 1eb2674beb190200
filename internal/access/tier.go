// internal/access/tier.go
package access

// Tier is a subscription level. Tier names are case-sensitive keys.
type Tier string

const (
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
	TierVIP     Tier = "vip"
)

// hierarchy is ordered by privilege; a tier's index is its rank.
var hierarchy = []Tier{TierFree, TierBasic, TierPremium, TierVIP}

// Rank returns the position of t in the hierarchy. Unknown tiers rank 0, the same as free.
func Rank(t Tier) int {
	for i, h := range hierarchy {
		if h == t {
			return i
		}
	}
	return 0
}

// Known reports whether t is one of the hierarchy tiers.
func (t Tier) Known() bool {
	for _, h := range hierarchy {
		if h == t {
			return true
		}
	}
	return false
}

// Satisfies reports whether a viewer holding t may open content requiring required.
func (t Tier) Satisfies(required Tier) bool {
	return Rank(t) >= Rank(required)
}

func (t Tier) String() string {
	return string(t)
}

// Tiers returns the hierarchy from lowest to highest.
func Tiers() []Tier {
	out := make([]Tier, len(hierarchy))
	copy(out, hierarchy)
	return out
}

// ResolveRequiredTier picks the strictest tier among the buckets an item is listed in.
// Buckets are checked vip, premium, basic; an item in none of them requires free.
func ResolveRequiredTier(buckets []Tier) Tier {
	for i := len(hierarchy) - 1; i > 0; i-- {
		for _, b := range buckets {
			if b == hierarchy[i] {
				return hierarchy[i]
			}
		}
	}
	return TierFree
}
