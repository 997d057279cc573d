package services

import (
	"sort"

	"github.com/bolaodoscria/bolao-backend/models"
)

// Rank builds a pool leaderboard. Every participant gets exactly one row holding the sum
// of points of their predictions. Rows are ordered by total descending; ties keep the
// participants' input order. Positions run 1..N without gaps.
func Rank(participants []*models.Participant, predictions []*models.Prediction) []models.RankedParticipant {
	totals := make(map[string]int, len(participants))
	for _, p := range predictions {
		totals[p.UserID] += p.Points
	}

	ranking := make([]models.RankedParticipant, 0, len(participants))
	seen := make(map[string]bool, len(participants))
	for _, participant := range participants {
		if seen[participant.UserID] {
			continue
		}
		seen[participant.UserID] = true
		ranking = append(ranking, models.RankedParticipant{
			UserID:      participant.UserID,
			Name:        participant.DisplayName(),
			TotalPoints: totals[participant.UserID],
		})
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].TotalPoints > ranking[j].TotalPoints
	})
	for i := range ranking {
		ranking[i].Position = i + 1
	}
	return ranking
}

// RankGlobal sums points across every pool. Users appear in the order their first
// prediction was seen, which also breaks ties.
func RankGlobal(predictions []*models.Prediction, profiles []*models.Profile) []models.RankedUser {
	names := make(map[string]string, len(profiles))
	for _, p := range profiles {
		names[p.ID] = p.Name
	}

	index := make(map[string]int)
	ranking := make([]models.RankedUser, 0)
	for _, p := range predictions {
		i, ok := index[p.UserID]
		if !ok {
			name := names[p.UserID]
			if name == "" {
				name = models.DefaultDisplayName
			}
			i = len(ranking)
			index[p.UserID] = i
			ranking = append(ranking, models.RankedUser{UserID: p.UserID, Name: name})
		}
		ranking[i].TotalPoints += p.Points
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].TotalPoints > ranking[j].TotalPoints
	})
	for i := range ranking {
		ranking[i].Position = i + 1
	}
	return ranking
}

// distinctUserIDs returns the user ids of predictions in first-seen order.
func distinctUserIDs(predictions []*models.Prediction) []string {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, p := range predictions {
		if !seen[p.UserID] {
			seen[p.UserID] = true
			ids = append(ids, p.UserID)
		}
	}
	return ids
}
