package checkepisodeavailability

type Input struct {
	ContentID     string `json:"contentId"`
	EpisodeNumber int    `json:"episodeNumber"`
}

type Output struct {
	ContentID         string  `json:"contentId"`
	EpisodeNumber     int     `json:"episodeNumber"`
	Available         bool    `json:"available"`
	AvailableEpisodes int     `json:"availableEpisodes"`
	TotalEpisodes     int     `json:"totalEpisodes"`
	LockedEpisodes    []int   `json:"lockedEpisodes"`
	LockedCount       int     `json:"lockedCount"`
	CurrentDonations  int64   `json:"currentDonations"`
	DonationGoal      int64   `json:"donationGoal"`
	ProgressPercent   float64 `json:"progressPercent"`
}
