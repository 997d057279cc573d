package models

import "time"

// Participant is a user's membership record in a pool.
type Participant struct {
	ID       string    `json:"id" db:"id"`
	PoolID   string    `json:"pool_id" db:"pool_id"`
	UserID   string    `json:"user_id" db:"user_id"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`

	User *ProfileSummary `json:"user,omitempty" db:"-"`
}

// DisplayName returns the participant's profile name or DefaultDisplayName.
func (p *Participant) DisplayName() string {
	if p == nil {
		return DefaultDisplayName
	}
	return p.User.DisplayName()
}
