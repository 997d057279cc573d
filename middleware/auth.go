package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bolaodoscria/bolao-backend/models"
	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const sessionContextKey contextKey = "session"

const (
	jwtClaimUserID = "user_id"
	jwtClaimName   = "name"
)

// Authenticate verifies the bearer token and stores the caller's session in the request
// context. Websocket clients may pass the token in the "token" query parameter instead.
func Authenticate(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			session, err := parseSession(raw, key)
			if err != nil {
				slog.DebugContext(r.Context(), "rejected token", slog.Any("error", err))
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("token")
}

func parseSession(raw string, key []byte) (*models.Session, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	userID, ok := claims[jwtClaimUserID].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("missing '%s' claim in token", jwtClaimUserID)
	}
	name, _ := claims[jwtClaimName].(string)

	return &models.Session{UserID: userID, Name: name}, nil
}

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext returns the session stored by Authenticate, or nil.
func SessionFromContext(ctx context.Context) *models.Session {
	session, _ := ctx.Value(sessionContextKey).(*models.Session)
	return session
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
