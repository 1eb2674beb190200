// internal/access/episode.go
package access

// IsEpisodeAvailable reports whether episode n has been unlocked for playback.
// Subscription tier plays no part here.
func IsEpisodeAvailable(item ContentItem, n int) bool {
	return n >= 1 && n <= item.AvailableEpisodes
}

// DonationProgressPercent returns current/goal as a percentage clamped to [0, 100].
// A goal of zero or less yields 0.
func DonationProgressPercent(current, goal int64) float64 {
	if goal <= 0 {
		return 0
	}
	pct := float64(current) / float64(goal) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// MaxLockedEpisodes bounds the list LockedEpisodes returns.
const MaxLockedEpisodes = 200

// LockedEpisodes lists the next episode numbers that are not yet playable, at most
// MaxLockedEpisodes of them. LockedEpisodeCount gives the full count.
func LockedEpisodes(item ContentItem) []int {
	count := LockedEpisodeCount(item)
	if count == 0 {
		return nil
	}
	if count > MaxLockedEpisodes {
		count = MaxLockedEpisodes
	}
	start := item.AvailableEpisodes + 1
	if start < 1 {
		start = 1
	}
	out := make([]int, 0, count)
	for n := start; len(out) < count; n++ {
		out = append(out, n)
	}
	return out
}

// LockedEpisodeCount is the number of episodes between the unlocked ones and the total.
func LockedEpisodeCount(item ContentItem) int {
	start := item.AvailableEpisodes + 1
	if start < 1 {
		start = 1
	}
	if item.TotalEpisodes < start {
		return 0
	}
	return item.TotalEpisodes - start + 1
}
