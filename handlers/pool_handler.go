package handlers

import (
	"net/http"

	"github.com/bolaodoscria/bolao-backend/services"
)

type PoolHandler struct {
	poolService services.PoolService
}

func NewPoolHandler(poolService services.PoolService) *PoolHandler {
	return &PoolHandler{poolService: poolService}
}

// ListAll godoc
// @Summary List every pool
// @Tags pools
// @Produce json
// @Success 200 {object} map[string]interface{} "Pools, newest first"
// @Failure 401 {object} map[string]string "Not authenticated"
// @Security BearerAuth
// @Router /pools [get]
func (h *PoolHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	pools, err := h.poolService.ListAll(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"pools": pools}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListMine godoc
// @Summary Pools the caller created or joined
// @Tags pools
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string "Not authenticated"
// @Security BearerAuth
// @Router /pools/mine [get]
func (h *PoolHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	pools, err := h.poolService.ListMine(r.Context(), sessionFrom(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"pools": pools}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Create godoc
// @Summary Create a pool
// @Description The creator joins the new pool automatically.
// @Tags pools
// @Accept json
// @Produce json
// @Param input body services.CreatePoolInput true "Pool data"
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Password already used by another pool"
// @Failure 422 {object} map[string]interface{} "Validation errors by field"
// @Security BearerAuth
// @Router /pools [post]
func (h *PoolHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreatePoolInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	pool, err := h.poolService.Create(r.Context(), sessionFrom(r), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"pool": pool}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// JoinByPassword godoc
// @Summary Join the pool protected by a password
// @Tags pools
// @Accept json
// @Produce json
// @Param input body services.JoinPoolInput true "Pool password"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "No pool with that password"
// @Failure 409 {object} map[string]string "Already a participant"
// @Security BearerAuth
// @Router /pools/join [post]
func (h *PoolHandler) JoinByPassword(w http.ResponseWriter, r *http.Request) {
	var input services.JoinPoolInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	pool, err := h.poolService.JoinByPassword(r.Context(), sessionFrom(r), input.Password)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"pool": pool}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Join godoc
// @Summary Join a pool by id and password
// @Tags pools
// @Accept json
// @Produce json
// @Param poolID path string true "Pool ID"
// @Param input body services.JoinPoolInput true "Pool password"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Pool not found or wrong password"
// @Failure 409 {object} map[string]string "Already a participant"
// @Security BearerAuth
// @Router /pools/{poolID}/join [post]
func (h *PoolHandler) Join(w http.ResponseWriter, r *http.Request) {
	poolID, err := uuidParam(r, "poolID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input services.JoinPoolInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	pool, err := h.poolService.Join(r.Context(), sessionFrom(r), poolID, input.Password)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"pool": pool}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get godoc
// @Summary Pool details
// @Description Pool, participants, matches by kickoff, the caller's predictions and the ranking.
// @Tags pools
// @Produce json
// @Param poolID path string true "Pool ID"
// @Success 200 {object} models.PoolDetail
// @Failure 404 {object} map[string]string "Pool not found"
// @Security BearerAuth
// @Router /pools/{poolID} [get]
func (h *PoolHandler) Get(w http.ResponseWriter, r *http.Request) {
	poolID, err := uuidParam(r, "poolID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	detail, err := h.poolService.Get(r.Context(), sessionFrom(r), poolID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, detail, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
