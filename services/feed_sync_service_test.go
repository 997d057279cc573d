package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bolaodoscria/bolao-backend/feed"
	"github.com/bolaodoscria/bolao-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedSyncService_AppliesFeedChanges(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	alice := env.addProfile("u-alice", "Alice")
	pool := createAmigos(t, env, alice)

	live, err := env.matches.ImportRecord(ctx, alice, pool.ID, flamengoVasco(101, "agendado", nil, nil))
	require.NoError(t, err)
	other := flamengoVasco(102, "agendado", nil, nil)
	other.HomeTeam.Name, other.AwayTeam.Name = "Palmeiras", "Santos"
	unchanged, err := env.matches.ImportRecord(ctx, alice, pool.ID, other)
	require.NoError(t, err)
	manual, err := env.matches.AddManual(ctx, alice, pool.ID, AddMatchInput{HomeTeam: "Grêmio", AwayTeam: "Inter", MatchDatetime: time.Now()})
	require.NoError(t, err)

	env.source.records = []feed.Match{
		flamengoVasco(101, "andamento", intPtr(1), intPtr(0)),
		other,
		flamengoVasco(999, "finalizado", intPtr(2), intPtr(2)),
	}
	store := &fakeObjectStore{}
	svc := NewFeedSyncService(env.source, store, fakeMatches{env.db}, env.matches, nil).(*feedSyncService)
	svc.now = func() time.Time { return time.Date(2026, 10, 14, 15, 30, 0, 0, time.UTC) }

	report, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.FeedMatches)
	assert.Equal(t, 2, report.Tracked)
	assert.Equal(t, 1, report.Updated)
	assert.Zero(t, report.Failed)
	assert.Equal(t, "feed/ao-vivo/2026/10/14/153000.json", report.SnapshotKey)
	assert.Contains(t, store.objects, report.SnapshotKey)

	got, err := fakeMatches{env.db}.GetByID(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusLive, got.Status)
	assert.Equal(t, 1, *got.HomeScore)

	got, err = fakeMatches{env.db}.GetByID(ctx, unchanged.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusScheduled, got.Status)

	got, err = fakeMatches{env.db}.GetByID(ctx, manual.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusScheduled, got.Status, "manual matches are not tracked")
}

func TestFeedSyncService_FinishedMatchesAreLeftAlone(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	alice := env.addProfile("u-alice", "Alice")
	pool := createAmigos(t, env, alice)

	match, err := env.matches.ImportRecord(ctx, alice, pool.ID, flamengoVasco(101, "andamento", intPtr(0), intPtr(0)))
	require.NoError(t, err)

	svc := NewFeedSyncService(env.source, nil, fakeMatches{env.db}, env.matches, nil)

	env.source.records = []feed.Match{flamengoVasco(101, "finalizado", intPtr(2), intPtr(1))}
	report, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Empty(t, report.SnapshotKey)

	env.source.records = []feed.Match{flamengoVasco(101, "andamento", intPtr(5), intPtr(5))}
	report, err = svc.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Tracked, "finished matches drop out of the open list")

	got, err := fakeMatches{env.db}.GetByID(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusFinished, got.Status)
	assert.Equal(t, 2, *got.HomeScore)
}

func TestFeedSyncService_SkipsStartedRecordsWithoutScores(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	alice := env.addProfile("u-alice", "Alice")
	pool := createAmigos(t, env, alice)
	_, err := env.matches.ImportRecord(ctx, alice, pool.ID, flamengoVasco(101, "agendado", nil, nil))
	require.NoError(t, err)

	env.source.records = []feed.Match{flamengoVasco(101, "andamento", nil, nil)}
	report, err := NewFeedSyncService(env.source, nil, fakeMatches{env.db}, env.matches, nil).Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Tracked)
	assert.Zero(t, report.Updated)
}

func TestFeedSyncService_Errors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	env.source.err = feed.ErrUnavailable
	_, err := NewFeedSyncService(env.source, nil, fakeMatches{env.db}, env.matches, nil).Sync(ctx)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, feed.ErrUnavailable)

	env.source.err = nil
	store := &fakeObjectStore{err: errors.New("bucket missing")}
	report, err := NewFeedSyncService(env.source, store, fakeMatches{env.db}, env.matches, nil).Sync(ctx)
	require.NoError(t, err, "archive failures do not stop the sync")
	assert.Empty(t, report.SnapshotKey)
}

func TestResultFromFeed(t *testing.T) {
	stored := &models.Match{Status: models.MatchStatusLive, HomeScore: intPtr(1), AwayScore: intPtr(0)}

	_, changed := resultFromFeed(stored, flamengoVasco(1, "andamento", intPtr(1), intPtr(0)))
	assert.False(t, changed)

	input, changed := resultFromFeed(stored, flamengoVasco(1, "Finalizado", intPtr(1), intPtr(0)))
	assert.True(t, changed)
	assert.Equal(t, models.MatchStatusFinished, input.Status)

	input, changed = resultFromFeed(stored, flamengoVasco(1, strings.ToUpper("agendado"), intPtr(1), intPtr(0)))
	assert.True(t, changed)
	assert.Nil(t, input.HomeScore)
}
