package models

import "time"

const (
	MinPredictedScore = 0
	MaxPredictedScore = 20
)

// Prediction is a participant's guessed final score. Points are assigned by the
// scoring service and only read here.
type Prediction struct {
	ID                 string    `json:"id" db:"id"`
	MatchID            string    `json:"match_id" db:"match_id"`
	UserID             string    `json:"user_id" db:"user_id"`
	PredictedHomeScore int       `json:"predicted_home_score" db:"predicted_home_score"`
	PredictedAwayScore int       `json:"predicted_away_score" db:"predicted_away_score"`
	Points             int       `json:"points" db:"points"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}
