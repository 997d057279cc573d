package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bolaodoscria/bolao-backend/models"
)

var (
	ErrParticipantNotFound    = errors.New("participant not found")
	ErrParticipantConflict    = errors.New("participant conflict: user already joined this pool")
	ErrParticipantPoolInvalid = errors.New("participant pool conflict or invalid")
	ErrParticipantUserInvalid = errors.New("participant user conflict or invalid")
)

type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error
	FindByPoolAndUser(ctx context.Context, poolID, userID string) (*models.Participant, error)
	ListByPool(ctx context.Context, poolID string) ([]*models.Participant, error)
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	query := `
		INSERT INTO pool_participants (id, pool_id, user_id)
		VALUES ($1, $2, $3)
		RETURNING joined_at`

	err := executorOr(exec, r.db).QueryRowContext(ctx, query, p.ID, p.PoolID, p.UserID).Scan(&p.JoinedAt)
	if err != nil {
		if code, constraint, ok := pqConstraint(err); ok {
			switch code {
			case pqUniqueViolation:
				if constraint == "pool_participants_pool_id_user_id_key" {
					return ErrParticipantConflict
				}
			case pqForeignKeyViolation:
				switch constraint {
				case "pool_participants_pool_id_fkey":
					return ErrParticipantPoolInvalid
				case "pool_participants_user_id_fkey":
					return ErrParticipantUserInvalid
				}
			}
		}
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

func (r *postgresParticipantRepository) FindByPoolAndUser(ctx context.Context, poolID, userID string) (*models.Participant, error) {
	query := `SELECT id, pool_id, user_id, joined_at FROM pool_participants WHERE pool_id = $1 AND user_id = $2`

	p := &models.Participant{}
	err := r.db.QueryRowContext(ctx, query, poolID, userID).Scan(&p.ID, &p.PoolID, &p.UserID, &p.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}
	return p, nil
}

// ListByPool returns participants with their profiles, oldest membership first.
func (r *postgresParticipantRepository) ListByPool(ctx context.Context, poolID string) ([]*models.Participant, error) {
	query := `
		SELECT
			pp.id, pp.pool_id, pp.user_id, pp.joined_at,
			u.id, COALESCE(u.name, ''), COALESCE(u.email, '')
		FROM pool_participants pp
		LEFT JOIN profiles u ON u.id = pp.user_id
		WHERE pp.pool_id = $1
		ORDER BY pp.joined_at ASC`

	rows, err := r.db.QueryContext(ctx, query, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants by pool: %w", err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		var (
			p      models.Participant
			userID sql.NullString
			user   models.ProfileSummary
		)
		if err := rows.Scan(&p.ID, &p.PoolID, &p.UserID, &p.JoinedAt, &userID, &user.Name, &user.Email); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		if userID.Valid {
			p.User = &user
		}
		participants = append(participants, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participant rows: %w", err)
	}
	return participants, nil
}
