package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bolaodoscria/bolao-backend/feed"
	"github.com/bolaodoscria/bolao-backend/models"
	"github.com/bolaodoscria/bolao-backend/realtime"
	"github.com/bolaodoscria/bolao-backend/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

type AddMatchInput struct {
	HomeTeam      string    `json:"home_team" validate:"required,max=100"`
	AwayTeam      string    `json:"away_team" validate:"required,max=100"`
	MatchDatetime time.Time `json:"match_datetime" validate:"required"`
}

type MatchResultInput struct {
	Status    models.MatchStatus `json:"status" validate:"required"`
	HomeScore *int               `json:"home_score" validate:"omitempty,min=0"`
	AwayScore *int               `json:"away_score" validate:"omitempty,min=0"`
}

type MatchService interface {
	ListForPool(ctx context.Context, poolID string) ([]*models.Match, error)
	ImportFromFeed(ctx context.Context, session *models.Session, poolID string, feedMatchID int64) (*models.Match, error)
	ImportRecord(ctx context.Context, session *models.Session, poolID string, record feed.Match) (*models.Match, error)
	AddManual(ctx context.Context, session *models.Session, poolID string, input AddMatchInput) (*models.Match, error)
	Remove(ctx context.Context, session *models.Session, matchID string) error
	ApplyResult(ctx context.Context, matchID string, input MatchResultInput) (*models.Match, error)
}

type matchService struct {
	pools       repositories.PoolRepository
	matches     repositories.MatchRepository
	predictions repositories.PredictionRepository
	tx          repositories.TxRunner
	feed        feed.Source
	events      EventPublisher
	logger      *slog.Logger
	imports     singleflight.Group
}

func NewMatchService(
	pools repositories.PoolRepository,
	matches repositories.MatchRepository,
	predictions repositories.PredictionRepository,
	tx repositories.TxRunner,
	source feed.Source,
	events EventPublisher,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		pools:       pools,
		matches:     matches,
		predictions: predictions,
		tx:          tx,
		feed:        source,
		events:      publisherOrNop(events),
		logger:      loggerOrDefault(logger, "match_service"),
	}
}

func (s *matchService) ListForPool(ctx context.Context, poolID string) ([]*models.Match, error) {
	if _, err := loadPool(ctx, s.pools, poolID); err != nil {
		return nil, err
	}
	matches, err := s.matches.ListByPool(ctx, poolID)
	if err != nil {
		return nil, transportError("list matches", err)
	}
	return matches, nil
}

// ImportFromFeed copies one live feed record into the pool. Concurrent imports of the
// same record into the same pool run once.
func (s *matchService) ImportFromFeed(ctx context.Context, session *models.Session, poolID string, feedMatchID int64) (*models.Match, error) {
	pool, err := requireCreator(ctx, s.pools, session, poolID)
	if err != nil {
		return nil, err
	}
	if s.feed == nil {
		return nil, transportError("import match", errors.New("live feed not configured"))
	}

	key := fmt.Sprintf("%s:%d", pool.ID, feedMatchID)
	v, _, err := doShared(ctx, &s.imports, key, func(ctx context.Context) (interface{}, error) {
		record, err := s.feed.Find(ctx, feedMatchID)
		if err != nil {
			if errors.Is(err, feed.ErrMatchNotFound) {
				return nil, ErrFeedMatchNotFound
			}
			s.logger.WarnContext(ctx, "live feed lookup failed", slog.Int64("feed_match_id", feedMatchID), slog.Any("error", err))
			return nil, transportError("fetch live feed", err)
		}
		return s.importRecord(ctx, pool, *record)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Match), nil
}

func (s *matchService) ImportRecord(ctx context.Context, session *models.Session, poolID string, record feed.Match) (*models.Match, error) {
	pool, err := requireCreator(ctx, s.pools, session, poolID)
	if err != nil {
		return nil, err
	}
	return s.importRecord(ctx, pool, record)
}

func (s *matchService) importRecord(ctx context.Context, pool *models.Pool, record feed.Match) (*models.Match, error) {
	homeTeam := strings.TrimSpace(record.HomeTeam.Name)
	awayTeam := strings.TrimSpace(record.AwayTeam.Name)
	if homeTeam == "" || awayTeam == "" {
		return nil, &ValidationError{Fields: map[string]string{"time_mandante": "team names are required", "time_visitante": "team names are required"}}
	}
	kickoff, err := record.Kickoff()
	if err != nil {
		return nil, fieldError("data_realizacao_iso", "must be a valid date")
	}

	status := feed.MapStatus(record.Status)
	externalID := record.ID
	match := &models.Match{
		ID:            uuid.NewString(),
		PoolID:        pool.ID,
		HomeTeam:      homeTeam,
		AwayTeam:      awayTeam,
		MatchDatetime: kickoff,
		Status:        status,
		ExternalID:    &externalID,
	}
	if status != models.MatchStatusScheduled {
		match.HomeScore = copyScore(record.HomeScore)
		match.AwayScore = copyScore(record.AwayScore)
	}

	if err := s.insert(ctx, match); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "match imported from feed",
		slog.String("pool_id", pool.ID), slog.String("match_id", match.ID), slog.Int64("feed_match_id", externalID))
	return match, nil
}

func (s *matchService) AddManual(ctx context.Context, session *models.Session, poolID string, input AddMatchInput) (*models.Match, error) {
	pool, err := requireCreator(ctx, s.pools, session, poolID)
	if err != nil {
		return nil, err
	}

	input.HomeTeam = strings.TrimSpace(input.HomeTeam)
	input.AwayTeam = strings.TrimSpace(input.AwayTeam)
	if err := validateInput(ctx, input); err != nil {
		return nil, err
	}

	match := &models.Match{
		ID:            uuid.NewString(),
		PoolID:        pool.ID,
		HomeTeam:      input.HomeTeam,
		AwayTeam:      input.AwayTeam,
		MatchDatetime: input.MatchDatetime,
		Status:        models.MatchStatusScheduled,
	}
	if err := s.insert(ctx, match); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "match added", slog.String("pool_id", pool.ID), slog.String("match_id", match.ID))
	return match, nil
}

// insert rejects a home/away pair already present in the pool. The unique constraint
// covers the window between the check and the insert.
func (s *matchService) insert(ctx context.Context, match *models.Match) error {
	_, err := s.matches.FindByFixture(ctx, match.PoolID, match.HomeTeam, match.AwayTeam)
	switch {
	case err == nil:
		return ErrMatchAlreadyExists
	case !errors.Is(err, repositories.ErrMatchNotFound):
		return transportError("check fixture", err)
	}

	if err := s.matches.Create(ctx, match); err != nil {
		switch {
		case errors.Is(err, repositories.ErrMatchConflict):
			return ErrMatchAlreadyExists
		case errors.Is(err, repositories.ErrMatchPoolInvalid):
			return ErrPoolNotFound
		case errors.Is(err, repositories.ErrMatchStatusInvalid):
			return fieldError("status", "is not a valid match status")
		}
		s.logger.ErrorContext(ctx, "failed to create match", slog.String("pool_id", match.PoolID), slog.Any("error", err))
		return transportError("create match", err)
	}

	s.events.PublishToPool(match.PoolID, realtime.EventMatchAdded, match)
	return nil
}

// Remove deletes the match together with its predictions.
func (s *matchService) Remove(ctx context.Context, session *models.Session, matchID string) error {
	if err := requireSession(session); err != nil {
		return err
	}
	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if _, err := requireCreator(ctx, s.pools, session, match.PoolID); err != nil {
		return err
	}

	var removedPredictions int64
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		n, err := s.predictions.DeleteByMatch(ctx, exec, matchID)
		if err != nil {
			return err
		}
		removedPredictions = n
		return s.matches.Delete(ctx, exec, matchID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		s.logger.ErrorContext(ctx, "failed to remove match", slog.String("match_id", matchID), slog.Any("error", err))
		return transportError("remove match", err)
	}

	s.logger.InfoContext(ctx, "match removed",
		slog.String("match_id", matchID), slog.Int64("predictions_removed", removedPredictions))
	s.events.PublishToPool(match.PoolID, realtime.EventMatchRemoved, map[string]string{"id": matchID})
	return nil
}

// ApplyResult records a status and score change coming from outside (feed sync or the
// scoring service). Finished matches are immutable.
func (s *matchService) ApplyResult(ctx context.Context, matchID string, input MatchResultInput) (*models.Match, error) {
	if err := validateInput(ctx, input); err != nil {
		return nil, err
	}
	if !input.Status.Valid() {
		return nil, fieldError("status", "must be one of scheduled, live, finished")
	}
	if input.Status == models.MatchStatusScheduled {
		input.HomeScore, input.AwayScore = nil, nil
	} else if input.HomeScore == nil || input.AwayScore == nil {
		return nil, &ValidationError{Fields: map[string]string{
			"home_score": "is required once the match has started",
			"away_score": "is required once the match has started",
		}}
	}

	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status == models.MatchStatusFinished {
		return nil, ErrMatchAlreadyFinished
	}

	if err := s.matches.UpdateResult(ctx, matchID, input.Status, input.HomeScore, input.AwayScore); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchAlreadyFinished
		}
		return nil, transportError("update match result", err)
	}

	match.Status = input.Status
	match.HomeScore = input.HomeScore
	match.AwayScore = input.AwayScore
	match.UpdatedAt = time.Now()

	s.logger.InfoContext(ctx, "match result applied",
		slog.String("match_id", matchID), slog.String("status", string(match.Status)))
	s.events.PublishToPool(match.PoolID, realtime.EventMatchUpdated, match)
	return match, nil
}

func (s *matchService) getMatch(ctx context.Context, matchID string) (*models.Match, error) {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, transportError("get match", err)
	}
	return match, nil
}

func copyScore(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
