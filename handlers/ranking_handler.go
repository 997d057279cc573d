package handlers

import (
	"net/http"

	"github.com/bolaodoscria/bolao-backend/services"
)

type RankingHandler struct {
	rankingService services.RankingService
}

func NewRankingHandler(rankingService services.RankingService) *RankingHandler {
	return &RankingHandler{rankingService: rankingService}
}

// PoolRanking godoc
// @Summary Leaderboard of a pool
// @Tags ranking
// @Produce json
// @Param poolID path string true "Pool ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Pool not found"
// @Security BearerAuth
// @Router /pools/{poolID}/ranking [get]
func (h *RankingHandler) PoolRanking(w http.ResponseWriter, r *http.Request) {
	poolID, err := uuidParam(r, "poolID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	ranking, err := h.rankingService.PoolRanking(r.Context(), poolID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"ranking": ranking}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GlobalRanking godoc
// @Summary Leaderboard across every pool
// @Tags ranking
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /ranking [get]
func (h *RankingHandler) GlobalRanking(w http.ResponseWriter, r *http.Request) {
	ranking, err := h.rankingService.GlobalRanking(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"ranking": ranking}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
