package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bolaodoscria/bolao-backend/models"
	"github.com/bolaodoscria/bolao-backend/realtime"
	"github.com/bolaodoscria/bolao-backend/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

type SubmitPredictionInput struct {
	PredictedHomeScore *int `json:"predicted_home_score" validate:"required,min=0,max=20"`
	PredictedAwayScore *int `json:"predicted_away_score" validate:"required,min=0,max=20"`
}

type SetPointsInput struct {
	Points *int `json:"points" validate:"required,min=0"`
}

type PredictionService interface {
	Submit(ctx context.Context, session *models.Session, matchID string, input SubmitPredictionInput) (*models.Prediction, error)
	ListForUser(ctx context.Context, session *models.Session, matchIDs []string) ([]*models.Prediction, error)
	ListForPool(ctx context.Context, session *models.Session, poolID string) ([]*models.Prediction, error)
	SetPoints(ctx context.Context, predictionID string, input SetPointsInput) (*models.Prediction, error)
}

type predictionService struct {
	pools        repositories.PoolRepository
	participants repositories.ParticipantRepository
	matches      repositories.MatchRepository
	predictions  repositories.PredictionRepository
	events       EventPublisher
	logger       *slog.Logger
	submits      singleflight.Group
}

func NewPredictionService(
	pools repositories.PoolRepository,
	participants repositories.ParticipantRepository,
	matches repositories.MatchRepository,
	predictions repositories.PredictionRepository,
	events EventPublisher,
	logger *slog.Logger,
) PredictionService {
	return &predictionService{
		pools:        pools,
		participants: participants,
		matches:      matches,
		predictions:  predictions,
		events:       publisherOrNop(events),
		logger:       loggerOrDefault(logger, "prediction_service"),
	}
}

// Submit creates or updates the caller's prediction for a match. Updates never touch points.
func (s *predictionService) Submit(ctx context.Context, session *models.Session, matchID string, input SubmitPredictionInput) (*models.Prediction, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if err := validateInput(ctx, input); err != nil {
		return nil, err
	}

	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, transportError("get match", err)
	}

	if _, err := s.participants.FindByPoolAndUser(ctx, match.PoolID, session.UserID); err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, ErrNotParticipant
		}
		return nil, transportError("check membership", err)
	}

	if !match.Status.Predictable() {
		return nil, ErrPredictionsClosed
	}

	// Only identical submits share a write; different scores each reach the upsert.
	key := fmt.Sprintf("%s:%s:%d:%d", session.UserID, matchID, *input.PredictedHomeScore, *input.PredictedAwayScore)
	v, _, err := doShared(ctx, &s.submits, key, func(ctx context.Context) (interface{}, error) {
		prediction := &models.Prediction{
			ID:                 uuid.NewString(),
			MatchID:            matchID,
			UserID:             session.UserID,
			PredictedHomeScore: *input.PredictedHomeScore,
			PredictedAwayScore: *input.PredictedAwayScore,
		}
		if err := s.predictions.Upsert(ctx, prediction); err != nil {
			switch {
			case errors.Is(err, repositories.ErrPredictionOutOfRange):
				return nil, fieldError("predicted_home_score", "scores must be between 0 and 20")
			case errors.Is(err, repositories.ErrPredictionMatchInvalid):
				return nil, ErrMatchNotFound
			case errors.Is(err, repositories.ErrPredictionUserInvalid):
				return nil, ErrProfileNotFound
			}
			s.logger.ErrorContext(ctx, "failed to save prediction", slog.String("match_id", matchID), slog.Any("error", err))
			return nil, transportError("save prediction", err)
		}
		return prediction, nil
	})
	if err != nil {
		return nil, err
	}

	prediction := v.(*models.Prediction)
	s.logger.InfoContext(ctx, "prediction saved",
		slog.String("prediction_id", prediction.ID), slog.String("match_id", matchID), slog.String("user_id", session.UserID))
	s.events.PublishToPool(match.PoolID, realtime.EventPredictionSaved, map[string]string{
		"match_id": matchID,
		"user_id":  session.UserID,
	})
	return prediction, nil
}

func (s *predictionService) ListForUser(ctx context.Context, session *models.Session, matchIDs []string) ([]*models.Prediction, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	predictions, err := s.predictions.ListByUserAndMatches(ctx, session.UserID, matchIDs)
	if err != nil {
		return nil, transportError("list predictions", err)
	}
	return predictions, nil
}

// ListForPool returns every prediction of the pool. Only participants may read them.
func (s *predictionService) ListForPool(ctx context.Context, session *models.Session, poolID string) ([]*models.Prediction, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if _, err := loadPool(ctx, s.pools, poolID); err != nil {
		return nil, err
	}
	if _, err := s.participants.FindByPoolAndUser(ctx, poolID, session.UserID); err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, ErrNotParticipant
		}
		return nil, transportError("check membership", err)
	}
	predictions, err := s.predictions.ListByPool(ctx, poolID)
	if err != nil {
		return nil, transportError("list pool predictions", err)
	}
	return predictions, nil
}

// SetPoints stores points assigned by the external scoring service.
func (s *predictionService) SetPoints(ctx context.Context, predictionID string, input SetPointsInput) (*models.Prediction, error) {
	if err := validateInput(ctx, input); err != nil {
		return nil, err
	}

	if err := s.predictions.UpdatePoints(ctx, predictionID, *input.Points); err != nil {
		if errors.Is(err, repositories.ErrPredictionNotFound) {
			return nil, ErrPredictionNotFound
		}
		return nil, transportError("update points", err)
	}

	prediction, err := s.predictions.GetByID(ctx, predictionID)
	if err != nil {
		if errors.Is(err, repositories.ErrPredictionNotFound) {
			return nil, ErrPredictionNotFound
		}
		return nil, transportError("get prediction", err)
	}

	if match, err := s.matches.GetByID(ctx, prediction.MatchID); err == nil {
		s.events.PublishToPool(match.PoolID, realtime.EventPointsUpdated, prediction)
	} else {
		s.logger.WarnContext(ctx, "points saved but match lookup failed", slog.String("match_id", prediction.MatchID), slog.Any("error", err))
	}
	return prediction, nil
}
