package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"splitbite/cmd/internal/ids"
	"splitbite/cmd/internal/session"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the bearer token payload resolving a caller to {id, name}.
// Credential management lives outside the core; this layer only reads the
// identity an upstream issuer (or the dev mint endpoint) signed.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

type ctxKey int

const identityKey ctxKey = 0

// identityFrom extracts the resolved caller from the request context.
func identityFrom(ctx context.Context) (session.Identity, bool) {
	id, ok := ctx.Value(identityKey).(session.Identity)
	return id, ok
}

type tokenRequest struct {
	Name string `json:"name"`
}

type tokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// handleMintToken issues a signed dev token for a display name. It stands in
// for the external identity provider in development and tests.
func (h *Handler) handleMintToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "name required")
		return
	}

	now := time.Now().UTC()
	userID, err := ids.NewULID(now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "id generation failed")
		return
	}

	claims := &Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "token signing failed")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: signed, UserID: userID, Name: name})
}

// withAuth resolves the bearer token to a caller identity or rejects with 401.
func (h *Handler) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
			return
		}

		raw := strings.TrimPrefix(authHeader, "Bearer ")
		if raw == authHeader {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid authorization header")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return h.jwtSecret, nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		caller := session.Identity{ID: claims.Subject, Name: claims.Name}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, caller)))
	})
}
