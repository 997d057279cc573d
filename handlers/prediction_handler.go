package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bolaodoscria/bolao-backend/services"
	"github.com/google/uuid"
)

type PredictionHandler struct {
	predictionService services.PredictionService
}

func NewPredictionHandler(predictionService services.PredictionService) *PredictionHandler {
	return &PredictionHandler{predictionService: predictionService}
}

// Submit godoc
// @Summary Create or update the caller's prediction for a match
// @Tags predictions
// @Accept json
// @Produce json
// @Param matchID path string true "Match ID"
// @Param input body services.SubmitPredictionInput true "Predicted score, 0 to 20 per side"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not a participant, or predictions closed"
// @Failure 404 {object} map[string]string "Match not found"
// @Failure 422 {object} map[string]interface{} "Validation errors by field"
// @Security BearerAuth
// @Router /matches/{matchID}/prediction [put]
func (h *PredictionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	matchID, err := uuidParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input services.SubmitPredictionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	prediction, err := h.predictionService.Submit(r.Context(), sessionFrom(r), matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"prediction": prediction}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListForUser godoc
// @Summary The caller's predictions for the given matches
// @Tags predictions
// @Produce json
// @Param match_id query []string true "Match IDs, repeated or comma separated" collectionFormat(multi)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid match id"
// @Security BearerAuth
// @Router /predictions [get]
func (h *PredictionHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	matchIDs, err := matchIDsFromQuery(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	predictions, err := h.predictionService.ListForUser(r.Context(), sessionFrom(r), matchIDs)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"predictions": predictions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListForPool godoc
// @Summary Every prediction made in a pool
// @Tags predictions
// @Produce json
// @Param poolID path string true "Pool ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Caller is not a participant of the pool"
// @Failure 404 {object} map[string]string "Pool not found"
// @Security BearerAuth
// @Router /pools/{poolID}/predictions [get]
func (h *PredictionHandler) ListForPool(w http.ResponseWriter, r *http.Request) {
	poolID, err := uuidParam(r, "poolID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	predictions, err := h.predictionService.ListForPool(r.Context(), sessionFrom(r), poolID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"predictions": predictions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// matchIDsFromQuery accepts ?match_id=a&match_id=b as well as ?match_id=a,b.
func matchIDsFromQuery(r *http.Request) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)
	for _, value := range r.URL.Query()["match_id"] {
		for _, raw := range strings.Split(value, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid match_id format: %q", raw)
			}
			if canonical := id.String(); !seen[canonical] {
				seen[canonical] = true
				ids = append(ids, canonical)
			}
		}
	}
	return ids, nil
}
