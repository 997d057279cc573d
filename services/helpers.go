package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bolaodoscria/bolao-backend/models"
	"github.com/bolaodoscria/bolao-backend/repositories"
	"golang.org/x/sync/singleflight"
)

// sharedCallTimeout bounds work collapsed by doShared once it no longer follows a caller's context.
const sharedCallTimeout = 15 * time.Second

// EventPublisher pushes pool-scoped change notifications to live subscribers.
type EventPublisher interface {
	PublishToPool(poolID, eventType string, payload interface{})
}

type nopPublisher struct{}

func (nopPublisher) PublishToPool(string, string, interface{}) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

func loggerOrDefault(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", component)
}

func requireSession(session *models.Session) error {
	if !session.Authenticated() {
		return ErrUnauthorized
	}
	return nil
}

// loadPool returns the pool or ErrPoolNotFound.
func loadPool(ctx context.Context, pools repositories.PoolRepository, poolID string) (*models.Pool, error) {
	pool, err := pools.GetByID(ctx, poolID)
	if err != nil {
		if errors.Is(err, repositories.ErrPoolNotFound) {
			return nil, ErrPoolNotFound
		}
		return nil, transportError("get pool", err)
	}
	return pool, nil
}

// requireCreator loads the pool and checks that the caller created it.
func requireCreator(ctx context.Context, pools repositories.PoolRepository, session *models.Session, poolID string) (*models.Pool, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	pool, err := loadPool(ctx, pools, poolID)
	if err != nil {
		return nil, err
	}
	if pool.CreatorID != session.UserID {
		return nil, ErrNotPoolCreator
	}
	return pool, nil
}

// doShared runs fn once for concurrent callers with the same key. fn gets a context
// that survives the cancellation of whichever caller started it; every caller stops
// waiting as soon as its own ctx is done.
func doShared(ctx context.Context, group *singleflight.Group, key string, fn func(ctx context.Context) (interface{}, error)) (interface{}, bool, error) {
	ch := group.DoChan(key, func() (interface{}, error) {
		workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedCallTimeout)
		defer cancel()
		return fn(workCtx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, transportError("wait for shared call", ctx.Err())
	}
}
