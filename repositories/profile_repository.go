package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bolaodoscria/bolao-backend/models"
	"github.com/lib/pq"
)

var (
	ErrProfileNotFound       = errors.New("profile not found")
	ErrProfileEmailConflict  = errors.New("profile email conflict")
	ErrPasswordResetNotFound = errors.New("password reset not found")
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	ListByIDs(ctx context.Context, ids []string) ([]*models.Profile, error)
	UpdatePasswordHash(ctx context.Context, exec SQLExecutor, id, hash string) error

	// SavePasswordReset replaces any previous code and clears its failure count.
	SavePasswordReset(ctx context.Context, reset *models.PasswordReset) error
	// AttemptPasswordReset checks code against the stored one and counts a miss
	// in the same statement. Codes that already reached maxFailures report
	// ErrPasswordResetNotFound.
	AttemptPasswordReset(ctx context.Context, profileID, code string, maxFailures int) (*models.PasswordReset, bool, error)
	DeletePasswordReset(ctx context.Context, exec SQLExecutor, profileID string) error
}

type postgresProfileRepository struct {
	db *sql.DB
}

func NewPostgresProfileRepository(db *sql.DB) ProfileRepository {
	return &postgresProfileRepository{db: db}
}

const profileColumns = `id, name, email, password_hash, created_at, updated_at`

func scanProfile(row rowScanner, p *models.Profile) error {
	return row.Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
}

func (r *postgresProfileRepository) Create(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO profiles (id, name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, p.ID, p.Name, p.Email, p.PasswordHash).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if code, constraint, ok := pqConstraint(err); ok && code == pqUniqueViolation && constraint == "profiles_email_key" {
			return ErrProfileEmailConflict
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r *postgresProfileRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Profile, error) {
	p := &models.Profile{}
	if err := scanProfile(r.db.QueryRowContext(ctx, query, args...), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return p, nil
}

func (r *postgresProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	return r.findOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
}

func (r *postgresProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	return r.findOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE lower(email) = lower($1)`, email)
}

func (r *postgresProfileRepository) ListByIDs(ctx context.Context, ids []string) ([]*models.Profile, error) {
	profiles := make([]*models.Profile, 0, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p := &models.Profile{}
		if err := scanProfile(rows, p); err != nil {
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profile rows: %w", err)
	}
	return profiles, nil
}

func (r *postgresProfileRepository) UpdatePasswordHash(ctx context.Context, exec SQLExecutor, id, hash string) error {
	result, err := executorOr(exec, r.db).ExecContext(ctx,
		`UPDATE profiles SET password_hash = $1, updated_at = now() WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	return checkAffectedRows(result, ErrProfileNotFound)
}

func (r *postgresProfileRepository) SavePasswordReset(ctx context.Context, reset *models.PasswordReset) error {
	query := `
		INSERT INTO password_resets (profile_id, code, expires_at, failed_attempts)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (profile_id) DO UPDATE
		SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at, failed_attempts = 0`

	if _, err := r.db.ExecContext(ctx, query, reset.ProfileID, reset.Code, reset.ExpiresAt); err != nil {
		return fmt.Errorf("failed to save password reset: %w", err)
	}
	return nil
}

func (r *postgresProfileRepository) AttemptPasswordReset(ctx context.Context, profileID, code string, maxFailures int) (*models.PasswordReset, bool, error) {
	query := `
		UPDATE password_resets
		SET failed_attempts = failed_attempts + CASE WHEN code = $2 THEN 0 ELSE 1 END
		WHERE profile_id = $1 AND failed_attempts < $3
		RETURNING profile_id, expires_at, failed_attempts, code = $2`

	reset := &models.PasswordReset{}
	var matched bool
	err := r.db.QueryRowContext(ctx, query, profileID, code, maxFailures).
		Scan(&reset.ProfileID, &reset.ExpiresAt, &reset.FailedAttempts, &matched)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, ErrPasswordResetNotFound
		}
		return nil, false, fmt.Errorf("failed to check password reset: %w", err)
	}
	return reset, matched, nil
}

func (r *postgresProfileRepository) DeletePasswordReset(ctx context.Context, exec SQLExecutor, profileID string) error {
	if _, err := executorOr(exec, r.db).ExecContext(ctx, `DELETE FROM password_resets WHERE profile_id = $1`, profileID); err != nil {
		return fmt.Errorf("failed to delete password reset: %w", err)
	}
	return nil
}
