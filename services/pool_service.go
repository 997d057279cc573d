package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"

	"github.com/bolaodoscria/bolao-backend/models"
	"github.com/bolaodoscria/bolao-backend/realtime"
	"github.com/bolaodoscria/bolao-backend/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type CreatePoolInput struct {
	Name             string `json:"name" validate:"required,min=3,max=100"`
	Password         string `json:"password" validate:"required,min=4,max=100"`
	ChampionshipName string `json:"championship_name" validate:"required,max=100"`
}

type JoinPoolInput struct {
	Password string `json:"password" validate:"required"`
}

type PoolService interface {
	ListMine(ctx context.Context, session *models.Session) ([]*models.Pool, error)
	ListAll(ctx context.Context) ([]*models.Pool, error)
	Create(ctx context.Context, session *models.Session, input CreatePoolInput) (*models.Pool, error)
	JoinByPassword(ctx context.Context, session *models.Session, password string) (*models.Pool, error)
	Join(ctx context.Context, session *models.Session, poolID, password string) (*models.Pool, error)
	Get(ctx context.Context, session *models.Session, poolID string) (*models.PoolDetail, error)
	GetPool(ctx context.Context, poolID string) (*models.Pool, error)
}

type poolService struct {
	pools        repositories.PoolRepository
	participants repositories.ParticipantRepository
	matches      repositories.MatchRepository
	predictions  repositories.PredictionRepository
	tx           repositories.TxRunner
	events       EventPublisher
	logger       *slog.Logger
	joins        singleflight.Group
}

func NewPoolService(
	pools repositories.PoolRepository,
	participants repositories.ParticipantRepository,
	matches repositories.MatchRepository,
	predictions repositories.PredictionRepository,
	tx repositories.TxRunner,
	events EventPublisher,
	logger *slog.Logger,
) PoolService {
	return &poolService{
		pools:        pools,
		participants: participants,
		matches:      matches,
		predictions:  predictions,
		tx:           tx,
		events:       publisherOrNop(events),
		logger:       loggerOrDefault(logger, "pool_service"),
	}
}

// ListMine returns the pools the user created followed by the pools they joined,
// without duplicates.
func (s *poolService) ListMine(ctx context.Context, session *models.Session) ([]*models.Pool, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	var created, joined []*models.Pool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		created, err = s.pools.ListByCreator(gctx, session.UserID)
		if err != nil {
			return transportError("list created pools", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		joined, err = s.pools.ListByParticipant(gctx, session.UserID)
		if err != nil {
			return transportError("list joined pools", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "failed to list user pools", slog.String("user_id", session.UserID), slog.Any("error", err))
		return nil, err
	}

	return mergePools(created, joined), nil
}

// mergePools concatenates lists keeping the first occurrence of every pool id.
func mergePools(lists ...[]*models.Pool) []*models.Pool {
	seen := make(map[string]bool)
	merged := make([]*models.Pool, 0)
	for _, list := range lists {
		for _, p := range list {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			merged = append(merged, p)
		}
	}
	return merged
}

func (s *poolService) ListAll(ctx context.Context) ([]*models.Pool, error) {
	pools, err := s.pools.ListAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list pools", slog.Any("error", err))
		return nil, transportError("list pools", err)
	}
	return pools, nil
}

// Create persists the pool and the creator's membership in one transaction.
func (s *poolService) Create(ctx context.Context, session *models.Session, input CreatePoolInput) (*models.Pool, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	input.Name = strings.TrimSpace(input.Name)
	input.ChampionshipName = strings.TrimSpace(input.ChampionshipName)
	if err := validateInput(ctx, input); err != nil {
		return nil, err
	}

	pool := &models.Pool{
		ID:               uuid.NewString(),
		Name:             input.Name,
		Password:         input.Password,
		ChampionshipName: input.ChampionshipName,
		CreatorID:        session.UserID,
	}
	participant := &models.Participant{
		ID:     uuid.NewString(),
		PoolID: pool.ID,
		UserID: session.UserID,
	}

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.pools.Create(ctx, exec, pool); err != nil {
			return err
		}
		return s.participants.Create(ctx, exec, participant)
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrPoolPasswordConflict):
			return nil, ErrPoolPasswordTaken
		case errors.Is(err, repositories.ErrPoolCreatorInvalid), errors.Is(err, repositories.ErrParticipantUserInvalid):
			return nil, ErrProfileNotFound
		}
		s.logger.ErrorContext(ctx, "failed to create pool", slog.String("user_id", session.UserID), slog.Any("error", err))
		return nil, transportError("create pool", err)
	}

	s.logger.InfoContext(ctx, "pool created", slog.String("pool_id", pool.ID), slog.String("creator_id", pool.CreatorID))
	return s.reload(ctx, pool, 1), nil
}

// reload re-reads the pool to pick up derived fields. On failure the given pool is
// returned with the expected participant count.
func (s *poolService) reload(ctx context.Context, pool *models.Pool, expectedCount int) *models.Pool {
	fresh, err := s.pools.GetByID(ctx, pool.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to reload pool", slog.String("pool_id", pool.ID), slog.Any("error", err))
		pool.ParticipantsCount = expectedCount
		return pool
	}
	return fresh
}

// JoinByPassword joins the single pool protected by password. No match and ambiguous
// matches both report ErrPoolNotFound.
func (s *poolService) JoinByPassword(ctx context.Context, session *models.Session, password string) (*models.Pool, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if err := validateInput(ctx, JoinPoolInput{Password: password}); err != nil {
		return nil, err
	}

	return s.singleJoin(ctx, "password:"+session.UserID+":"+password, func(ctx context.Context) (*models.Pool, error) {
		pools, err := s.pools.FindByPassword(ctx, password)
		if err != nil {
			return nil, transportError("find pool by password", err)
		}
		if len(pools) != 1 {
			return nil, ErrPoolNotFound
		}
		return s.join(ctx, session, pools[0])
	})
}

// Join joins poolID when password matches. A wrong password is reported as ErrPoolNotFound.
func (s *poolService) Join(ctx context.Context, session *models.Session, poolID, password string) (*models.Pool, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if err := validateInput(ctx, JoinPoolInput{Password: password}); err != nil {
		return nil, err
	}

	return s.singleJoin(ctx, "pool:"+session.UserID+":"+poolID, func(ctx context.Context) (*models.Pool, error) {
		pool, err := loadPool(ctx, s.pools, poolID)
		if err != nil {
			return nil, err
		}
		if subtle.ConstantTimeCompare([]byte(pool.Password), []byte(password)) != 1 {
			return nil, ErrPoolNotFound
		}
		return s.join(ctx, session, pool)
	})
}

func (s *poolService) singleJoin(ctx context.Context, key string, fn func(ctx context.Context) (*models.Pool, error)) (*models.Pool, error) {
	v, shared, err := doShared(ctx, &s.joins, key, func(ctx context.Context) (interface{}, error) {
		return fn(ctx)
	})
	if shared {
		s.logger.DebugContext(ctx, "duplicate join collapsed", slog.String("key_kind", strings.SplitN(key, ":", 2)[0]))
	}
	if err != nil {
		return nil, err
	}
	return v.(*models.Pool), nil
}

func (s *poolService) join(ctx context.Context, session *models.Session, pool *models.Pool) (*models.Pool, error) {
	_, err := s.participants.FindByPoolAndUser(ctx, pool.ID, session.UserID)
	switch {
	case err == nil:
		return nil, ErrAlreadyMember
	case !errors.Is(err, repositories.ErrParticipantNotFound):
		return nil, transportError("check membership", err)
	}

	participant := &models.Participant{
		ID:     uuid.NewString(),
		PoolID: pool.ID,
		UserID: session.UserID,
	}
	if err := s.participants.Create(ctx, nil, participant); err != nil {
		switch {
		case errors.Is(err, repositories.ErrParticipantConflict):
			return nil, ErrAlreadyMember
		case errors.Is(err, repositories.ErrParticipantPoolInvalid):
			return nil, ErrPoolNotFound
		case errors.Is(err, repositories.ErrParticipantUserInvalid):
			return nil, ErrProfileNotFound
		}
		s.logger.ErrorContext(ctx, "failed to join pool", slog.String("pool_id", pool.ID), slog.Any("error", err))
		return nil, transportError("join pool", err)
	}

	s.logger.InfoContext(ctx, "user joined pool", slog.String("pool_id", pool.ID), slog.String("user_id", session.UserID))
	s.events.PublishToPool(pool.ID, realtime.EventParticipantJoined, participant)

	return s.reload(ctx, pool, pool.ParticipantsCount+1), nil
}

func (s *poolService) GetPool(ctx context.Context, poolID string) (*models.Pool, error) {
	return loadPool(ctx, s.pools, poolID)
}

// Get assembles the pool view: participants, matches by kickoff, the caller's
// predictions and the leaderboard.
func (s *poolService) Get(ctx context.Context, session *models.Session, poolID string) (*models.PoolDetail, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	pool, err := loadPool(ctx, s.pools, poolID)
	if err != nil {
		return nil, err
	}

	var (
		participants []*models.Participant
		matches      []*models.Match
		predictions  []*models.Prediction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if participants, err = s.participants.ListByPool(gctx, poolID); err != nil {
			return transportError("list participants", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if matches, err = s.matches.ListByPool(gctx, poolID); err != nil {
			return transportError("list matches", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if predictions, err = s.predictions.ListByPool(gctx, poolID); err != nil {
			return transportError("list predictions", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "failed to load pool details", slog.String("pool_id", poolID), slog.Any("error", err))
		return nil, err
	}

	mine := make([]*models.Prediction, 0)
	for _, p := range predictions {
		if p.UserID == session.UserID {
			mine = append(mine, p)
		}
	}

	return &models.PoolDetail{
		Pool:          pool,
		Participants:  participants,
		Matches:       matches,
		MyPredictions: mine,
		Ranking:       Rank(participants, predictions),
	}, nil
}
