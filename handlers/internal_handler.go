package handlers

import (
	"net/http"

	"github.com/bolaodoscria/bolao-backend/services"
)

// InternalHandler serves the routes used by the scoring service. They sit behind
// middleware.RequireInternalKey instead of user sessions.
type InternalHandler struct {
	predictionService services.PredictionService
	matchService      services.MatchService
	feedSync          services.FeedSyncService
}

func NewInternalHandler(predictionService services.PredictionService, matchService services.MatchService, feedSync services.FeedSyncService) *InternalHandler {
	return &InternalHandler{
		predictionService: predictionService,
		matchService:      matchService,
		feedSync:          feedSync,
	}
}

// SetPoints godoc
// @Summary Store the points earned by a prediction
// @Tags internal
// @Accept json
// @Produce json
// @Param predictionID path string true "Prediction ID"
// @Param input body services.SetPointsInput true "Points"
// @Param X-Internal-Key header string true "Internal API key"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string "Missing or wrong internal key"
// @Failure 404 {object} map[string]string "Prediction not found"
// @Router /internal/predictions/{predictionID}/points [put]
func (h *InternalHandler) SetPoints(w http.ResponseWriter, r *http.Request) {
	predictionID, err := uuidParam(r, "predictionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input services.SetPointsInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	prediction, err := h.predictionService.SetPoints(r.Context(), predictionID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"prediction": prediction}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ApplyResult godoc
// @Summary Store the status and score of a match
// @Tags internal
// @Accept json
// @Produce json
// @Param matchID path string true "Match ID"
// @Param input body services.MatchResultInput true "Status and score"
// @Param X-Internal-Key header string true "Internal API key"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Match not found"
// @Failure 409 {object} map[string]string "Match already finished"
// @Router /internal/matches/{matchID}/result [put]
func (h *InternalHandler) ApplyResult(w http.ResponseWriter, r *http.Request) {
	matchID, err := uuidParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input services.MatchResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.ApplyResult(r.Context(), matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SyncFeed godoc
// @Summary Pull the live feed now and update tracked matches
// @Tags internal
// @Produce json
// @Param X-Internal-Key header string true "Internal API key"
// @Success 200 {object} services.SyncReport
// @Failure 503 {object} map[string]interface{} "Live feed unavailable"
// @Router /internal/feed/sync [post]
func (h *InternalHandler) SyncFeed(w http.ResponseWriter, r *http.Request) {
	report, err := h.feedSync.Sync(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, report, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
