package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bolaodoscria/bolao-backend/models"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchConflict      = errors.New("match conflict: fixture already exists in this pool")
	ErrMatchPoolInvalid   = errors.New("match pool conflict or invalid")
	ErrMatchStatusInvalid = errors.New("match status invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, m *models.Match) error
	GetByID(ctx context.Context, id string) (*models.Match, error)
	ListByPool(ctx context.Context, poolID string) ([]*models.Match, error)
	FindByFixture(ctx context.Context, poolID, homeTeam, awayTeam string) (*models.Match, error)
	// ListOpenWithExternalID returns every non-finished match imported from the feed.
	ListOpenWithExternalID(ctx context.Context) ([]*models.Match, error)
	// UpdateResult never touches finished matches; it returns ErrMatchNotFound when no open row matched.
	UpdateResult(ctx context.Context, id string, status models.MatchStatus, homeScore, awayScore *int) error
	Delete(ctx context.Context, exec SQLExecutor, id string) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, pool_id, home_team, away_team, match_datetime, home_score, away_score, status, external_id, created_at, updated_at`

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		m          models.Match
		homeScore  sql.NullInt64
		awayScore  sql.NullInt64
		externalID sql.NullInt64
	)
	err := row.Scan(&m.ID, &m.PoolID, &m.HomeTeam, &m.AwayTeam, &m.MatchDatetime,
		&homeScore, &awayScore, &m.Status, &externalID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if homeScore.Valid {
		v := int(homeScore.Int64)
		m.HomeScore = &v
	}
	if awayScore.Valid {
		v := int(awayScore.Int64)
		m.AwayScore = &v
	}
	if externalID.Valid {
		v := externalID.Int64
		m.ExternalID = &v
	}
	return &m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, m *models.Match) error {
	query := `
		INSERT INTO matches (id, pool_id, home_team, away_team, match_datetime, home_score, away_score, status, external_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		m.ID, m.PoolID, m.HomeTeam, m.AwayTeam, m.MatchDatetime,
		m.HomeScore, m.AwayScore, m.Status, m.ExternalID,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if code, constraint, ok := pqConstraint(err); ok {
			switch {
			case code == pqUniqueViolation && constraint == "matches_pool_id_home_team_away_team_key":
				return ErrMatchConflict
			case code == pqForeignKeyViolation && constraint == "matches_pool_id_fkey":
				return ErrMatchPoolInvalid
			case code == pqCheckViolation && constraint == "matches_status_check":
				return ErrMatchStatusInvalid
			}
		}
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	m, err := scanMatch(r.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

func (r *postgresMatchRepository) FindByFixture(ctx context.Context, poolID, homeTeam, awayTeam string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE pool_id = $1 AND home_team = $2 AND away_team = $3`
	m, err := scanMatch(r.db.QueryRowContext(ctx, query, poolID, homeTeam, awayTeam))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to find match by fixture: %w", err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByPool(ctx context.Context, poolID string) ([]*models.Match, error) {
	return r.list(ctx, `SELECT `+matchColumns+` FROM matches WHERE pool_id = $1 ORDER BY match_datetime ASC`, poolID)
}

func (r *postgresMatchRepository) ListOpenWithExternalID(ctx context.Context) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE external_id IS NOT NULL AND status <> 'finished' ORDER BY match_datetime ASC`
	return r.list(ctx, query)
}

func (r *postgresMatchRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, id string, status models.MatchStatus, homeScore, awayScore *int) error {
	query := `
		UPDATE matches
		SET status = $1, home_score = $2, away_score = $3, updated_at = now()
		WHERE id = $4 AND status <> 'finished'`

	result, err := r.db.ExecContext(ctx, query, status, homeScore, awayScore, id)
	if err != nil {
		return fmt.Errorf("failed to update match result: %w", err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, exec SQLExecutor, id string) error {
	result, err := executorOr(exec, r.db).ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}
