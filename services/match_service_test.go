package services

import (
	"context"
	"testing"
	"time"

	"github.com/bolaodoscria/bolao-backend/feed"
	"github.com/bolaodoscria/bolao-backend/models"
	"github.com/bolaodoscria/bolao-backend/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flamengoVasco(id int64, status string, home, away *int) feed.Match {
	return feed.Match{
		ID:           id,
		Championship: feed.Championship{ID: 10, Name: "Campeonato Brasileiro"},
		HomeTeam:     feed.Team{Name: "Flamengo"},
		AwayTeam:     feed.Team{Name: "Vasco"},
		HomeScore:    home,
		AwayScore:    away,
		Status:       status,
		DateISO:      "2026-10-15T16:00:00-0300",
	}
}

func TestMatchService_ImportFromFeed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	alice := env.addProfile("u-alice", "Alice")
	pool := createAmigos(t, env, alice)
	env.source.records = []feed.Match{flamengoVasco(101, "andamento", intPtr(1), intPtr(0))}

	match, err := env.matches.ImportFromFeed(ctx, alice, pool.ID, 101)
	require.NoError(t, err)
	assert.Equal(t, "Flamengo", match.HomeTeam)
	assert.Equal(t, "Vasco", match.AwayTeam)
	assert.Equal(t, models.MatchStatusLive, match.Status)
	require.NotNil(t, match.HomeScore)
	assert.Equal(t, 1, *match.HomeScore)
	require.NotNil(t, match.ExternalID)
	assert.Equal(t, int64(101), *match.ExternalID)
	assert.True(t, match.MatchDatetime.Equal(time.Date(2026, 10, 15, 19, 0, 0, 0, time.UTC)))
	assert.Contains(t, env.events.types(), realtime.EventMatchAdded)
}

func TestMatchService_ImportScheduledDropsScores(t *testing.T) {
	env := newTestEnv()
	alice := env.addProfile("u-alice", "Alice")
	pool := createAmigos(t, env, alice)
	env.source.records = []feed.Match{flamengoVasco(7, "agendado", intPtr(0), intPtr(0))}

	match, err := env.matches.ImportFromFeed(context.Background(), alice, pool.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusScheduled, match.Status)
	assert.Nil(t, match.HomeScore)
	assert.Nil(t, match.AwayScore)
}

func TestMatchService_ImportTwiceConflicts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	alice := env.addProfile("u-alice", "Alice")
	pool := createAmigos(t, env, alice)

	first := flamengoVasco(101, "agendado", nil, nil)
	second := flamengoVasco(202, "agendado", nil, nil)
	second.DateISO = "2026-11-20T21:30:00-0300"

	_, err := env.matches.ImportRecord(ctx, alice, pool.ID, first)
	require.NoError(t, err)

	_, err = env.matches.ImportRecord(ctx, alice, pool.ID, second)
	assert.ErrorIs(t, err, ErrMatchAlreadyExists, "same pair on another date is still a duplicate")
	assert.ErrorIs(t, err, ErrConflict)

	matches, err := env.matches.ListForPool(ctx, pool.ID)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestMatchService_ImportErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	alice := env.addProfile("u-alice", "Alice")
	bob := env.addProfile("u-bob", "Bob")
	pool := createAmigos(t, env, alice)

	_, err := env.matches.ImportFromFeed(ctx, bob, pool.ID, 101)
	assert.ErrorIs(t, err, ErrNotPoolCreator)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.matches.ImportFromFeed(ctx, alice, pool.ID, 999)
	assert.ErrorIs(t, err, ErrFeedMatchNotFound)

	env.source.err = feed.ErrUnavailable
	_, err = env.matches.ImportFromFeed(ctx, alice, pool.ID, 101)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, feed.ErrUnavailable)

	noTeams := flamengoVasco(5, "agendado", nil, nil)
	noTeams.AwayTeam.Name = "  "
	_, err = env.matches.ImportRecord(ctx, alice, pool.ID, noTeams)
	assert.ErrorIs(t, err, ErrValidation)

	noDate := flamengoVasco(6, "agendado", nil, nil)
	noDate.DateISO = ""
	_, err = env.matches.ImportRecord(ctx, alice, pool.ID, noDate)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMatchService_AddManual(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	alice := env.addProfile("u-alice", "Alice")
	bob := env.addProfile("u-bob", "Bob")
	pool := createAmigos(t, env, alice)
	kickoff := time.Date(2026, 10, 15, 19, 0, 0, 0, time.UTC)

	match, err := env.matches.AddManual(ctx, alice, pool.ID, AddMatchInput{HomeTeam: " Palmeiras ", AwayTeam: "Santos", MatchDatetime: kickoff})
	require.NoError(t, err)
	assert.Equal(t, "Palmeiras", match.HomeTeam)
	assert.Equal(t, models.MatchStatusScheduled, match.Status)
	assert.Nil(t, match.HomeScore)
	assert.Nil(t, match.ExternalID)

	_, err = env.matches.AddManual(ctx, alice, pool.ID, AddMatchInput{HomeTeam: "Palmeiras", AwayTeam: "Santos", MatchDatetime: kickoff.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrMatchAlreadyExists)

	_, err = env.matches.AddManual(ctx, alice, pool.ID, AddMatchInput{HomeTeam: "Santos", AwayTeam: "Palmeiras", MatchDatetime: kickoff})
	assert.NoError(t, err, "the reversed pair is a different fixture")

	_, err = env.matches.AddManual(ctx, alice, pool.ID, AddMatchInput{HomeTeam: "Grêmio"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.matches.AddManual(ctx, bob, pool.ID, AddMatchInput{HomeTeam: "Grêmio", AwayTeam: "Inter", MatchDatetime: kickoff})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.matches.AddManual(ctx, alice, "missing", AddMatchInput{HomeTeam: "Grêmio", AwayTeam: "Inter", MatchDatetime: kickoff})
	assert.ErrorIs(t, err, ErrPoolNotFound)
}

func TestMatchService_ListForPoolOrdersByKickoff(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	alice := env.addProfile("u-alice", "Alice")
	pool := createAmigos(t, env, alice)
	base := time.Date(2026, 10, 15, 19, 0, 0, 0, time.UTC)

	late, err := env.matches.AddManual(ctx, alice, pool.ID, AddMatchInput{HomeTeam: "A", AwayTeam: "B", MatchDatetime: base.Add(48 * time.Hour)})
	require.NoError(t, err)
	early, err := env.matches.AddManual(ctx, alice, pool.ID, AddMatchInput{HomeTeam: "C", AwayTeam: "D", MatchDatetime: base})
	require.NoError(t, err)

	matches, err := env.matches.ListForPool(ctx, pool.ID)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, early.ID, matches[0].ID)
	assert.Equal(t, late.ID, matches[1].ID)

	_, err = env.matches.ListForPool(ctx, "missing")
	assert.ErrorIs(t, err, ErrPoolNotFound)
}

func TestMatchService_RemoveDeletesPredictions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	alice := env.addProfile("u-alice", "Alice")
	bob := env.addProfile("u-bob", "Bob")
	pool := createAmigos(t, env, alice)
	_, err := env.pools.JoinByPassword(ctx, bob, "1234")
	require.NoError(t, err)

	match, err := env.matches.AddManual(ctx, alice, pool.ID, AddMatchInput{HomeTeam: "Flamengo", AwayTeam: "Vasco", MatchDatetime: time.Now().Add(24 * time.Hour)})
	require.NoError(t, err)
	_, err = env.predictions.Submit(ctx, bob, match.ID, SubmitPredictionInput{PredictedHomeScore: intPtr(2), PredictedAwayScore: intPtr(1)})
	require.NoError(t, err)

	err = env.matches.Remove(ctx, bob, match.ID)
	assert.ErrorIs(t, err, ErrNotPoolCreator)
	assert.Len(t, env.db.matches, 1)

	require.NoError(t, env.matches.Remove(ctx, alice, match.ID))
	assert.Empty(t, env.db.matches)
	assert.Empty(t, env.db.predictions)
	assert.Contains(t, env.events.types(), realtime.EventMatchRemoved)

	err = env.matches.Remove(ctx, alice, match.ID)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestMatchService_ApplyResult(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	alice := env.addProfile("u-alice", "Alice")
	pool := createAmigos(t, env, alice)
	match, err := env.matches.AddManual(ctx, alice, pool.ID, AddMatchInput{HomeTeam: "Flamengo", AwayTeam: "Vasco", MatchDatetime: time.Now()})
	require.NoError(t, err)

	_, err = env.matches.ApplyResult(ctx, match.ID, MatchResultInput{Status: "postponed"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.matches.ApplyResult(ctx, match.ID, MatchResultInput{Status: models.MatchStatusLive, HomeScore: intPtr(1)})
	assert.ErrorIs(t, err, ErrValidation, "both scores are required once started")

	updated, err := env.matches.ApplyResult(ctx, match.ID, MatchResultInput{Status: models.MatchStatusFinished, HomeScore: intPtr(3), AwayScore: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusFinished, updated.Status)
	assert.Equal(t, 3, *updated.HomeScore)
	assert.Contains(t, env.events.types(), realtime.EventMatchUpdated)

	_, err = env.matches.ApplyResult(ctx, match.ID, MatchResultInput{Status: models.MatchStatusFinished, HomeScore: intPtr(0), AwayScore: intPtr(0)})
	assert.ErrorIs(t, err, ErrMatchAlreadyFinished)

	stored, err := fakeMatches{env.db}.GetByID(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, *stored.HomeScore, "finished scores are immutable")

	_, err = env.matches.ApplyResult(ctx, "missing", MatchResultInput{Status: models.MatchStatusScheduled})
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestMatchService_ApplyScheduledClearsScores(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	alice := env.addProfile("u-alice", "Alice")
	pool := createAmigos(t, env, alice)
	match, err := env.matches.ImportRecord(ctx, alice, pool.ID, flamengoVasco(1, "andamento", intPtr(1), intPtr(1)))
	require.NoError(t, err)

	updated, err := env.matches.ApplyResult(ctx, match.ID, MatchResultInput{Status: models.MatchStatusScheduled, HomeScore: intPtr(4), AwayScore: intPtr(4)})
	require.NoError(t, err)
	assert.Nil(t, updated.HomeScore)
	assert.Nil(t, updated.AwayScore)
}
