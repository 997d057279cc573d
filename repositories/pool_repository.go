package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bolaodoscria/bolao-backend/models"
)

var (
	ErrPoolNotFound         = errors.New("pool not found")
	ErrPoolPasswordConflict = errors.New("pool password conflict")
	ErrPoolCreatorInvalid   = errors.New("pool creator invalid")
)

type PoolRepository interface {
	Create(ctx context.Context, exec SQLExecutor, pool *models.Pool) error
	GetByID(ctx context.Context, id string) (*models.Pool, error)
	// FindByPassword returns at most two pools so callers can detect ambiguity.
	FindByPassword(ctx context.Context, password string) ([]*models.Pool, error)
	ListAll(ctx context.Context) ([]*models.Pool, error)
	ListByCreator(ctx context.Context, userID string) ([]*models.Pool, error)
	ListByParticipant(ctx context.Context, userID string) ([]*models.Pool, error)
}

type postgresPoolRepository struct {
	db *sql.DB
}

func NewPostgresPoolRepository(db *sql.DB) PoolRepository {
	return &postgresPoolRepository{db: db}
}

const selectPoolSQL = `
	SELECT
		p.id, p.name, p.password, p.championship_name, p.creator_id, p.created_at, p.updated_at,
		u.id, COALESCE(u.name, ''), COALESCE(u.email, ''),
		(SELECT COUNT(*) FROM pool_participants pp WHERE pp.pool_id = p.id) AS participants_count
	FROM pools p
	LEFT JOIN profiles u ON u.id = p.creator_id`

func scanPool(row rowScanner) (*models.Pool, error) {
	var (
		p         models.Pool
		creatorID sql.NullString
		creator   models.ProfileSummary
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Password, &p.ChampionshipName, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt,
		&creatorID, &creator.Name, &creator.Email,
		&p.ParticipantsCount,
	)
	if err != nil {
		return nil, err
	}
	if creatorID.Valid {
		p.Creator = &creator
	}
	return &p, nil
}

func (r *postgresPoolRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Pool) error {
	query := `
		INSERT INTO pools (id, name, password, championship_name, creator_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := executorOr(exec, r.db).QueryRowContext(ctx, query,
		p.ID, p.Name, p.Password, p.ChampionshipName, p.CreatorID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if code, constraint, ok := pqConstraint(err); ok {
			switch {
			case code == pqUniqueViolation && constraint == "pools_password_key":
				return ErrPoolPasswordConflict
			case code == pqForeignKeyViolation && constraint == "pools_creator_id_fkey":
				return ErrPoolCreatorInvalid
			}
		}
		return fmt.Errorf("failed to create pool: %w", err)
	}
	return nil
}

func (r *postgresPoolRepository) GetByID(ctx context.Context, id string) (*models.Pool, error) {
	p, err := scanPool(r.db.QueryRowContext(ctx, selectPoolSQL+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPoolNotFound
		}
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}
	return p, nil
}

func (r *postgresPoolRepository) FindByPassword(ctx context.Context, password string) ([]*models.Pool, error) {
	return r.list(ctx, selectPoolSQL+` WHERE p.password = $1 LIMIT 2`, password)
}

func (r *postgresPoolRepository) ListAll(ctx context.Context) ([]*models.Pool, error) {
	return r.list(ctx, selectPoolSQL+` ORDER BY p.created_at DESC`)
}

func (r *postgresPoolRepository) ListByCreator(ctx context.Context, userID string) ([]*models.Pool, error) {
	return r.list(ctx, selectPoolSQL+` WHERE p.creator_id = $1 ORDER BY p.created_at DESC`, userID)
}

func (r *postgresPoolRepository) ListByParticipant(ctx context.Context, userID string) ([]*models.Pool, error) {
	query := selectPoolSQL + `
	JOIN pool_participants me ON me.pool_id = p.id
	WHERE me.user_id = $1
	ORDER BY me.joined_at ASC`
	return r.list(ctx, query, userID)
}

func (r *postgresPoolRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Pool, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	defer rows.Close()

	pools := make([]*models.Pool, 0)
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pool row: %w", err)
		}
		pools = append(pools, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pool rows: %w", err)
	}
	return pools, nil
}
