package feed

import (
	"strings"

	"github.com/bolaodoscria/bolao-backend/models"
)

const (
	StatusInProgress = "andamento"
	StatusFinished   = "finalizado"
	StatusScheduled  = "agendado"
)

// MapStatus translates the feed vocabulary. Anything unknown is treated as scheduled.
func MapStatus(status string) models.MatchStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusInProgress:
		return models.MatchStatusLive
	case StatusFinished:
		return models.MatchStatusFinished
	default:
		return models.MatchStatusScheduled
	}
}
