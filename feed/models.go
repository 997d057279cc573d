package feed

import (
	"fmt"
	"time"
)

// brazilOffset is used when the feed omits a zone; api-futebol reports Brasília time.
var brazilOffset = time.FixedZone("BRT", -3*60*60)

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
}

// Match is one fixture as returned by the api-futebol live endpoint.
type Match struct {
	ID           int64        `json:"partida_id"`
	Championship Championship `json:"campeonato"`
	Scoreline    string       `json:"placar"`
	HomeTeam     Team         `json:"time_mandante"`
	AwayTeam     Team         `json:"time_visitante"`
	HomeScore    *int         `json:"placar_mandante"`
	AwayScore    *int         `json:"placar_visitante"`
	Status       string       `json:"status"`
	Slug         string       `json:"slug"`
	Date         string       `json:"data_realizacao"`
	Time         string       `json:"hora_realizacao"`
	DateISO      string       `json:"data_realizacao_iso"`
	Stadium      *Stadium     `json:"estadio,omitempty"`
	Link         string       `json:"_link,omitempty"`
}

type Championship struct {
	ID   int64  `json:"campeonato_id"`
	Name string `json:"nome"`
	Slug string `json:"slug"`
}

type Team struct {
	ID        int64  `json:"time_id"`
	Name      string `json:"nome_popular"`
	ShortName string `json:"sigla"`
	BadgeURL  string `json:"escudo"`
}

type Stadium struct {
	ID   int64  `json:"estadio_id"`
	Name string `json:"nome_popular"`
}

// Kickoff returns the scheduled start of the match. It prefers the ISO field and
// falls back to the dd/mm/yyyy date plus hh:mm time pair.
func (m *Match) Kickoff() (time.Time, error) {
	if m.DateISO != "" {
		for _, layout := range isoLayouts {
			if t, err := time.ParseInLocation(layout, m.DateISO, brazilOffset); err == nil {
				return t, nil
			}
		}
	}
	if m.Date != "" {
		value, layout := m.Date, "02/01/2006"
		if m.Time != "" {
			value, layout = m.Date+" "+m.Time, "02/01/2006 15:04"
		}
		if t, err := time.ParseInLocation(layout, value, brazilOffset); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("feed match %d has no parseable kickoff (iso=%q date=%q time=%q)", m.ID, m.DateISO, m.Date, m.Time)
}
