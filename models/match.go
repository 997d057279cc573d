package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusFinished  MatchStatus = "finished"
)

// Valid reports whether s is one of the known statuses.
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusScheduled, MatchStatusLive, MatchStatusFinished:
		return true
	}
	return false
}

// Predictable reports whether predictions may still be submitted.
func (s MatchStatus) Predictable() bool {
	return s == MatchStatusScheduled || s == MatchStatusLive
}

type Match struct {
	ID            string      `json:"id" db:"id"`
	PoolID        string      `json:"pool_id" db:"pool_id"`
	HomeTeam      string      `json:"home_team" db:"home_team"`
	AwayTeam      string      `json:"away_team" db:"away_team"`
	MatchDatetime time.Time   `json:"match_datetime" db:"match_datetime"`
	HomeScore     *int        `json:"home_score" db:"home_score"`
	AwayScore     *int        `json:"away_score" db:"away_score"`
	Status        MatchStatus `json:"status" db:"status"`
	ExternalID    *int64      `json:"external_id,omitempty" db:"external_id"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// SameFixture reports whether m already covers the home/away pair, regardless of date.
func (m *Match) SameFixture(homeTeam, awayTeam string) bool {
	return m.HomeTeam == homeTeam && m.AwayTeam == awayTeam
}
