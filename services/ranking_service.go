package services

import (
	"context"
	"log/slog"

	"github.com/bolaodoscria/bolao-backend/models"
	"github.com/bolaodoscria/bolao-backend/repositories"
	"golang.org/x/sync/errgroup"
)

type RankingService interface {
	PoolRanking(ctx context.Context, poolID string) ([]models.RankedParticipant, error)
	GlobalRanking(ctx context.Context) ([]models.RankedUser, error)
}

type rankingService struct {
	pools        repositories.PoolRepository
	participants repositories.ParticipantRepository
	predictions  repositories.PredictionRepository
	profiles     repositories.ProfileRepository
	logger       *slog.Logger
}

func NewRankingService(
	pools repositories.PoolRepository,
	participants repositories.ParticipantRepository,
	predictions repositories.PredictionRepository,
	profiles repositories.ProfileRepository,
	logger *slog.Logger,
) RankingService {
	return &rankingService{
		pools:        pools,
		participants: participants,
		predictions:  predictions,
		profiles:     profiles,
		logger:       loggerOrDefault(logger, "ranking_service"),
	}
}

func (s *rankingService) PoolRanking(ctx context.Context, poolID string) ([]models.RankedParticipant, error) {
	if _, err := loadPool(ctx, s.pools, poolID); err != nil {
		return nil, err
	}

	var (
		participants []*models.Participant
		predictions  []*models.Prediction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		participants, err = s.participants.ListByPool(gctx, poolID)
		if err != nil {
			return transportError("list participants", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		predictions, err = s.predictions.ListByPool(gctx, poolID)
		if err != nil {
			return transportError("list pool predictions", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "failed to load pool ranking data", slog.String("pool_id", poolID), slog.Any("error", err))
		return nil, err
	}

	return Rank(participants, predictions), nil
}

func (s *rankingService) GlobalRanking(ctx context.Context) ([]models.RankedUser, error) {
	predictions, err := s.predictions.ListAll(ctx)
	if err != nil {
		return nil, transportError("list predictions", err)
	}

	profiles, err := s.profiles.ListByIDs(ctx, distinctUserIDs(predictions))
	if err != nil {
		return nil, transportError("list profiles", err)
	}

	return RankGlobal(predictions, profiles), nil
}
