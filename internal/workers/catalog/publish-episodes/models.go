package publishepisodes

type Input struct {
	ContentID         string `json:"contentId"`
	AvailableEpisodes int    `json:"availableEpisodes"`
}

type Output struct {
	ContentID         string `json:"contentId"`
	PreviousAvailable int    `json:"previousAvailable"`
	AvailableEpisodes int    `json:"availableEpisodes"`
	TotalEpisodes     int    `json:"totalEpisodes"`
	Changed           bool   `json:"changed"`
	NewlyUnlocked     []int  `json:"newlyUnlocked"`
}
