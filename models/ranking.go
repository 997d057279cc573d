package models

// RankedParticipant is one row of a pool leaderboard.
type RankedParticipant struct {
	Position    int    `json:"position"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	TotalPoints int    `json:"total_points"`
}

// RankedUser is one row of the global leaderboard.
type RankedUser struct {
	Position    int    `json:"position"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	TotalPoints int    `json:"total_points"`
}
