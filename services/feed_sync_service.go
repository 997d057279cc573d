package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bolaodoscria/bolao-backend/feed"
	"github.com/bolaodoscria/bolao-backend/models"
	"github.com/bolaodoscria/bolao-backend/repositories"
	"github.com/bolaodoscria/bolao-backend/storage"
)

const feedSnapshotPrefix = "feed/ao-vivo"

// SyncReport summarises one feed sync run.
type SyncReport struct {
	FeedMatches int    `json:"feed_matches"`
	Tracked     int    `json:"tracked"`
	Updated     int    `json:"updated"`
	Failed      int    `json:"failed"`
	SnapshotKey string `json:"snapshot_key,omitempty"`
}

type FeedSyncService interface {
	Sync(ctx context.Context) (*SyncReport, error)
}

type feedSyncService struct {
	source  feed.Source
	store   storage.ObjectStore
	matches repositories.MatchRepository
	results MatchService
	now     func() time.Time
	logger  *slog.Logger
}

// NewFeedSyncService builds the sync job. store may be nil, in which case raw payloads
// are not archived.
func NewFeedSyncService(
	source feed.Source,
	store storage.ObjectStore,
	matches repositories.MatchRepository,
	results MatchService,
	logger *slog.Logger,
) FeedSyncService {
	return &feedSyncService{
		source:  source,
		store:   store,
		matches: matches,
		results: results,
		now:     time.Now,
		logger:  loggerOrDefault(logger, "feed_sync"),
	}
}

// Sync pulls the live feed and pushes status and score changes into every open match
// imported from it. A failure on one match does not stop the others.
func (s *feedSyncService) Sync(ctx context.Context) (*SyncReport, error) {
	raw, err := s.source.LiveRaw(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "live feed unavailable", slog.Any("error", err))
		return nil, transportError("fetch live feed", err)
	}

	report := &SyncReport{}
	if s.store != nil {
		key := storage.SnapshotKey(feedSnapshotPrefix, s.now())
		if _, err := s.store.Put(ctx, key, "application/json", raw); err != nil {
			s.logger.WarnContext(ctx, "failed to archive feed snapshot", slog.String("key", key), slog.Any("error", err))
		} else {
			report.SnapshotKey = key
		}
	}

	records, err := feed.Decode(raw)
	if err != nil {
		return nil, transportError("decode live feed", err)
	}
	report.FeedMatches = len(records)

	byID := make(map[int64]feed.Match, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	open, err := s.matches.ListOpenWithExternalID(ctx)
	if err != nil {
		return nil, transportError("list open matches", err)
	}

	for _, m := range open {
		if m.ExternalID == nil {
			continue
		}
		record, ok := byID[*m.ExternalID]
		if !ok {
			continue
		}
		report.Tracked++

		input, changed := resultFromFeed(m, record)
		if !changed {
			continue
		}
		if _, err := s.results.ApplyResult(ctx, m.ID, input); err != nil {
			if errors.Is(err, ErrMatchAlreadyFinished) {
				continue
			}
			report.Failed++
			s.logger.ErrorContext(ctx, "failed to apply feed result",
				slog.String("match_id", m.ID), slog.Int64("feed_match_id", record.ID), slog.Any("error", err))
			continue
		}
		report.Updated++
	}

	s.logger.InfoContext(ctx, "feed sync finished",
		slog.Int("feed_matches", report.FeedMatches),
		slog.Int("tracked", report.Tracked),
		slog.Int("updated", report.Updated),
		slog.Int("failed", report.Failed))
	return report, nil
}

// resultFromFeed maps a feed record onto the stored match. It reports false when
// nothing changed or when a started match arrives without both scores.
func resultFromFeed(m *models.Match, record feed.Match) (MatchResultInput, bool) {
	input := MatchResultInput{Status: feed.MapStatus(record.Status)}
	if input.Status != models.MatchStatusScheduled {
		if record.HomeScore == nil || record.AwayScore == nil {
			return input, false
		}
		input.HomeScore = copyScore(record.HomeScore)
		input.AwayScore = copyScore(record.AwayScore)
	}

	if input.Status == m.Status && sameScore(input.HomeScore, m.HomeScore) && sameScore(input.AwayScore, m.AwayScore) {
		return input, false
	}
	return input, true
}

func sameScore(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
