package handlers

import (
	"net/http"

	"github.com/bolaodoscria/bolao-backend/feed"
)

type FeedHandler struct {
	source feed.Source
}

func NewFeedHandler(source feed.Source) *FeedHandler {
	return &FeedHandler{source: source}
}

// Live godoc
// @Summary Matches currently in the live feed
// @Description Optional q filters by team or championship name, ignoring case and accents.
// @Tags feed
// @Produce json
// @Param q query string false "Search term"
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{} "Live feed unavailable"
// @Security BearerAuth
// @Router /feed/live [get]
func (h *FeedHandler) Live(w http.ResponseWriter, r *http.Request) {
	matches, err := h.source.Live(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	matches = feed.Search(matches, r.URL.Query().Get("q"))
	if matches == nil {
		matches = []feed.Match{}
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
