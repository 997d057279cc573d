package handlers

import (
	"errors"
	"net/http"

	"github.com/bolaodoscria/bolao-backend/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

type importMatchRequest struct {
	FeedMatchID int64 `json:"feed_match_id"`
}

// ListForPool godoc
// @Summary Matches of a pool, by kickoff
// @Tags matches
// @Produce json
// @Param poolID path string true "Pool ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Pool not found"
// @Security BearerAuth
// @Router /pools/{poolID}/matches [get]
func (h *MatchHandler) ListForPool(w http.ResponseWriter, r *http.Request) {
	poolID, err := uuidParam(r, "poolID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.ListForPool(r.Context(), poolID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AddManual godoc
// @Summary Add a match by hand
// @Tags matches
// @Accept json
// @Produce json
// @Param poolID path string true "Pool ID"
// @Param input body services.AddMatchInput true "Teams and kickoff"
// @Success 201 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Only the pool creator can add matches"
// @Failure 409 {object} map[string]string "Fixture already in the pool"
// @Failure 422 {object} map[string]interface{} "Validation errors by field"
// @Security BearerAuth
// @Router /pools/{poolID}/matches [post]
func (h *MatchHandler) AddManual(w http.ResponseWriter, r *http.Request) {
	poolID, err := uuidParam(r, "poolID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input services.AddMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.AddManual(r.Context(), sessionFrom(r), poolID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Import godoc
// @Summary Import a match from the live feed
// @Tags matches
// @Accept json
// @Produce json
// @Param poolID path string true "Pool ID"
// @Param input body importMatchRequest true "Feed match id (partida_id)"
// @Success 201 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Only the pool creator can import matches"
// @Failure 404 {object} map[string]string "Pool or feed match not found"
// @Failure 409 {object} map[string]string "Fixture already in the pool"
// @Failure 503 {object} map[string]interface{} "Live feed unavailable"
// @Security BearerAuth
// @Router /pools/{poolID}/matches/import [post]
func (h *MatchHandler) Import(w http.ResponseWriter, r *http.Request) {
	poolID, err := uuidParam(r, "poolID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input importMatchRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.FeedMatchID <= 0 {
		badRequestResponse(w, r, errors.New("feed_match_id must be a positive integer"))
		return
	}

	match, err := h.matchService.ImportFromFeed(r.Context(), sessionFrom(r), poolID, input.FeedMatchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Remove godoc
// @Summary Delete a match and its predictions
// @Tags matches
// @Param matchID path string true "Match ID"
// @Success 204
// @Failure 403 {object} map[string]string "Only the pool creator can delete matches"
// @Failure 404 {object} map[string]string "Match not found"
// @Security BearerAuth
// @Router /matches/{matchID} [delete]
func (h *MatchHandler) Remove(w http.ResponseWriter, r *http.Request) {
	matchID, err := uuidParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.Remove(r.Context(), sessionFrom(r), matchID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
