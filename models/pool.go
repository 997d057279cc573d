package models

import "time"

// Pool is a "bolão": a prediction contest tied to one championship.
type Pool struct {
	ID               string    `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	Password         string    `json:"-" db:"password"`
	ChampionshipName string    `json:"championship_name" db:"championship_name"`
	CreatorID        string    `json:"creator_id" db:"creator_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`

	// Derived fields, not stored in the pools table.
	ParticipantsCount int             `json:"participants_count" db:"-"`
	Creator           *ProfileSummary `json:"creator,omitempty" db:"-"`
}

// PoolDetail is the aggregated view returned for a single pool.
type PoolDetail struct {
	Pool          *Pool               `json:"pool"`
	Participants  []*Participant      `json:"participants"`
	Matches       []*Match            `json:"matches"`
	MyPredictions []*Prediction       `json:"my_predictions"`
	Ranking       []RankedParticipant `json:"ranking"`
}
