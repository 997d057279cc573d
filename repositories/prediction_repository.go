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
	ErrPredictionNotFound     = errors.New("prediction not found")
	ErrPredictionMatchInvalid = errors.New("prediction match conflict or invalid")
	ErrPredictionUserInvalid  = errors.New("prediction user conflict or invalid")
	ErrPredictionOutOfRange   = errors.New("prediction score out of range")
)

type PredictionRepository interface {
	// Upsert inserts a new prediction or updates the predicted scores of the existing
	// (match_id, user_id) row. Points are never written here.
	Upsert(ctx context.Context, p *models.Prediction) error
	GetByID(ctx context.Context, id string) (*models.Prediction, error)
	ListByUserAndMatches(ctx context.Context, userID string, matchIDs []string) ([]*models.Prediction, error)
	ListByPool(ctx context.Context, poolID string) ([]*models.Prediction, error)
	ListAll(ctx context.Context) ([]*models.Prediction, error)
	UpdatePoints(ctx context.Context, id string, points int) error
	DeleteByMatch(ctx context.Context, exec SQLExecutor, matchID string) (int64, error)
}

type postgresPredictionRepository struct {
	db *sql.DB
}

func NewPostgresPredictionRepository(db *sql.DB) PredictionRepository {
	return &postgresPredictionRepository{db: db}
}

const predictionColumns = `id, match_id, user_id, predicted_home_score, predicted_away_score, points, created_at, updated_at`

func scanPrediction(row rowScanner, p *models.Prediction) error {
	return row.Scan(&p.ID, &p.MatchID, &p.UserID, &p.PredictedHomeScore, &p.PredictedAwayScore,
		&p.Points, &p.CreatedAt, &p.UpdatedAt)
}

func (r *postgresPredictionRepository) Upsert(ctx context.Context, p *models.Prediction) error {
	query := `
		INSERT INTO predictions (id, match_id, user_id, predicted_home_score, predicted_away_score, points)
		VALUES ($1, $2, $3, $4, $5, 0)
		ON CONFLICT (match_id, user_id) DO UPDATE
		SET predicted_home_score = EXCLUDED.predicted_home_score,
			predicted_away_score = EXCLUDED.predicted_away_score,
			updated_at = now()
		RETURNING ` + predictionColumns

	row := r.db.QueryRowContext(ctx, query, p.ID, p.MatchID, p.UserID, p.PredictedHomeScore, p.PredictedAwayScore)
	if err := scanPrediction(row, p); err != nil {
		if code, constraint, ok := pqConstraint(err); ok {
			switch {
			case code == pqForeignKeyViolation && constraint == "predictions_match_id_fkey":
				return ErrPredictionMatchInvalid
			case code == pqForeignKeyViolation && constraint == "predictions_user_id_fkey":
				return ErrPredictionUserInvalid
			case code == pqCheckViolation && constraint == "predictions_score_range":
				return ErrPredictionOutOfRange
			}
		}
		return fmt.Errorf("failed to upsert prediction: %w", err)
	}
	return nil
}

func (r *postgresPredictionRepository) GetByID(ctx context.Context, id string) (*models.Prediction, error) {
	p := &models.Prediction{}
	row := r.db.QueryRowContext(ctx, `SELECT `+predictionColumns+` FROM predictions WHERE id = $1`, id)
	if err := scanPrediction(row, p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPredictionNotFound
		}
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	return p, nil
}

func (r *postgresPredictionRepository) ListByUserAndMatches(ctx context.Context, userID string, matchIDs []string) ([]*models.Prediction, error) {
	if len(matchIDs) == 0 {
		return []*models.Prediction{}, nil
	}
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE user_id = $1 AND match_id = ANY($2) ORDER BY created_at ASC`
	return r.list(ctx, query, userID, pq.Array(matchIDs))
}

func (r *postgresPredictionRepository) ListByPool(ctx context.Context, poolID string) ([]*models.Prediction, error) {
	query := `
		SELECT pr.id, pr.match_id, pr.user_id, pr.predicted_home_score, pr.predicted_away_score, pr.points, pr.created_at, pr.updated_at
		FROM predictions pr
		JOIN matches m ON m.id = pr.match_id
		WHERE m.pool_id = $1
		ORDER BY pr.created_at ASC`
	return r.list(ctx, query, poolID)
}

func (r *postgresPredictionRepository) ListAll(ctx context.Context) ([]*models.Prediction, error) {
	return r.list(ctx, `SELECT `+predictionColumns+` FROM predictions ORDER BY created_at ASC`)
}

func (r *postgresPredictionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Prediction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	predictions := make([]*models.Prediction, 0)
	for rows.Next() {
		p := &models.Prediction{}
		if err := scanPrediction(rows, p); err != nil {
			return nil, fmt.Errorf("failed to scan prediction row: %w", err)
		}
		predictions = append(predictions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prediction rows: %w", err)
	}
	return predictions, nil
}

func (r *postgresPredictionRepository) UpdatePoints(ctx context.Context, id string, points int) error {
	result, err := r.db.ExecContext(ctx, `UPDATE predictions SET points = $1, updated_at = now() WHERE id = $2`, points, id)
	if err != nil {
		return fmt.Errorf("failed to update prediction points: %w", err)
	}
	return checkAffectedRows(result, ErrPredictionNotFound)
}

func (r *postgresPredictionRepository) DeleteByMatch(ctx context.Context, exec SQLExecutor, matchID string) (int64, error) {
	result, err := executorOr(exec, r.db).ExecContext(ctx, `DELETE FROM predictions WHERE match_id = $1`, matchID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete predictions of match: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return n, nil
}
