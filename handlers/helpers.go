package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bolaodoscria/bolao-backend/feed"
	"github.com/bolaodoscria/bolao-backend/middleware"
	"github.com/bolaodoscria/bolao-backend/models"
	"github.com/bolaodoscria/bolao-backend/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type jsonResponse map[string]interface{}

const maxBodyBytes = 1_048_576

var (
	errEmptyBody    = errors.New("body must not be empty")
	errTrailingData = errors.New("body must only contain a single JSON value")
)

// readJSON decodes exactly one JSON object from the request body into dst.
// Unknown keys and bodies over maxBodyBytes are rejected.
func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return describeDecodeError(err)
	}
	if dec.More() {
		return errTrailingData
	}
	return nil
}

// describeDecodeError turns decoder errors into messages safe to show clients.
func describeDecodeError(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		sizeErr   *http.MaxBytesError
	)
	switch {
	case err == io.EOF:
		return errEmptyBody
	case errors.Is(err, io.ErrUnexpectedEOF):
		return errors.New("body contains badly-formed JSON")
	case errors.As(err, &syntaxErr):
		return fmt.Errorf("body contains badly-formed JSON (at byte %d)", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return errors.New("body must be a JSON object")
		}
		return fmt.Errorf("body contains incorrect JSON type for field %q: expected %s", typeErr.Field, typeErr.Type)
	case errors.As(err, &sizeErr):
		return fmt.Errorf("body must not be larger than %d bytes", sizeErr.Limit)
	}
	if key, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return fmt.Errorf("body contains unknown key %s", key)
	}
	return fmt.Errorf("body could not be decoded: %w", err)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	respond(w, r, status, jsonResponse{"error": message})
}

func respond(w http.ResponseWriter, r *http.Request, status int, body jsonResponse) {
	if err := writeJSON(w, status, body, nil); err != nil {
		slog.ErrorContext(r.Context(), "failed to write JSON response", slog.Int("status", status), slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal server error",
		slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("error", err))
	message := "the server encountered a problem and could not process your request"
	errorResponse(w, r, http.StatusInternalServerError, message)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func failedValidationResponse(w http.ResponseWriter, r *http.Request, fields map[string]string) {
	errorResponse(w, r, http.StatusUnprocessableEntity, fields)
}

func unavailableResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.WarnContext(r.Context(), "dependency unavailable",
		slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("error", err))
	respond(w, r, http.StatusServiceUnavailable, jsonResponse{
		"error":     "service temporarily unavailable, please try again",
		"retryable": true,
	})
}

// mapServiceErrorToHTTP turns a service error into a response using its kind.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *services.ValidationError

	switch {
	case errors.As(err, &validationErr):
		failedValidationResponse(w, r, validationErr.Fields)
	case errors.Is(err, services.ErrValidation):
		badRequestResponse(w, r, err)
	case errors.Is(err, services.ErrConflict):
		errorResponse(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrNotFound):
		errorResponse(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrForbidden):
		errorResponse(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		errorResponse(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrTransport), errors.Is(err, feed.ErrUnavailable):
		unavailableResponse(w, r, err)
	default:
		serverErrorResponse(w, r, err)
	}
}

func sessionFrom(r *http.Request) *models.Session {
	return middleware.SessionFromContext(r.Context())
}

// uuidParam reads a UUID path parameter and returns it in canonical form.
func uuidParam(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return "", fmt.Errorf("missing %s in URL path", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid %s format: %q", name, raw)
	}
	return id.String(), nil
}
