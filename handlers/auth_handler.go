package handlers

import (
	"net/http"

	"github.com/bolaodoscria/bolao-backend/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func authBody(result *services.AuthResult) jsonResponse {
	return jsonResponse{
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
		"user":       result.Profile,
	}
}

// Register godoc
// @Summary Create an account
// @Tags auth
// @Accept json
// @Produce json
// @Param input body services.RegisterInput true "Name, email and password"
// @Success 201 {object} map[string]interface{} "Token and profile"
// @Failure 400 {object} map[string]string "Malformed body"
// @Failure 409 {object} map[string]string "Email already in use"
// @Failure 422 {object} map[string]interface{} "Validation errors by field"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.authService.Register(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, authBody(result), nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Login godoc
// @Summary Sign in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param input body services.LoginInput true "Credentials"
// @Success 200 {object} map[string]interface{} "Token and profile"
// @Failure 401 {object} map[string]string "Invalid email or password"
// @Failure 422 {object} map[string]interface{} "Validation errors by field"
// @Failure 429 {object} map[string]string "Too many attempts from this address"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.authService.Login(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, authBody(result), nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Me godoc
// @Summary Current user profile
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{} "Profile"
// @Failure 401 {object} map[string]string "Not authenticated"
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.authService.Me(r.Context(), sessionFrom(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": profile}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ForgotPassword godoc
// @Summary Email a password reset code
// @Description Always answers 202 so callers cannot tell which emails are registered.
// @Tags auth
// @Accept json
// @Produce json
// @Param input body services.ForgotPasswordInput true "Email"
// @Success 202 {object} map[string]string
// @Failure 422 {object} map[string]interface{} "Validation errors by field"
// @Failure 503 {object} map[string]interface{} "Mail delivery unavailable"
// @Failure 429 {object} map[string]string "Too many attempts from this address"
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var input services.ForgotPasswordInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), input); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"message": "if the email is registered, a reset code was sent"}
	if err := writeJSON(w, http.StatusAccepted, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// VerifyResetCode godoc
// @Summary Check a password reset code
// @Tags auth
// @Accept json
// @Produce json
// @Param input body services.VerifyResetCodeInput true "Email and code"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid or expired code"
// @Failure 429 {object} map[string]string "Too many attempts from this address"
// @Router /auth/verify-code [post]
func (h *AuthHandler) VerifyResetCode(w http.ResponseWriter, r *http.Request) {
	var input services.VerifyResetCodeInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.authService.VerifyResetCode(r.Context(), input); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"valid": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ResetPassword godoc
// @Summary Set a new password using a reset code
// @Tags auth
// @Accept json
// @Produce json
// @Param input body services.ResetPasswordInput true "Email, code and new password"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Invalid or expired code"
// @Failure 422 {object} map[string]interface{} "Validation errors by field"
// @Failure 429 {object} map[string]string "Too many attempts from this address"
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var input services.ResetPasswordInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.authService.ResetPassword(r.Context(), input); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "password updated"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
