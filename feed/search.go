package feed

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Search keeps the matches whose home team, away team or championship name fuzzily
// contains term. Case and accents are ignored. An empty term returns everything.
func Search(matches []Match, term string) []Match {
	term = strings.TrimSpace(term)
	if term == "" {
		return matches
	}

	result := make([]Match, 0, len(matches))
	for _, m := range matches {
		if fuzzy.MatchNormalizedFold(term, m.HomeTeam.Name) ||
			fuzzy.MatchNormalizedFold(term, m.AwayTeam.Name) ||
			fuzzy.MatchNormalizedFold(term, m.Championship.Name) {
			result = append(result, m)
		}
	}
	return result
}
