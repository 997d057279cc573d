package models

import "time"

// DefaultDisplayName is shown when a participant has no profile attached.
const DefaultDisplayName = "Usuário"

// Profile is the public account of a user.
type Profile struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ProfileSummary is the embedded form used in pool and participant listings.
type ProfileSummary struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DisplayName returns the profile name or the fallback constant.
func (p *ProfileSummary) DisplayName() string {
	if p == nil || p.Name == "" {
		return DefaultDisplayName
	}
	return p.Name
}

type PasswordReset struct {
	ProfileID      string    `db:"profile_id"`
	Code           string    `db:"code"`
	ExpiresAt      time.Time `db:"expires_at"`
	FailedAttempts int       `db:"failed_attempts"`
}
