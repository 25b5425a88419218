package middlewares

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ray-remotestate/canteen/authz"
	"github.com/ray-remotestate/canteen/models"
)

type Claims struct {
	UserID uuid.UUID     `json:"user_id"`
	Roles  []models.Role `json:"roles"`
	jwt.RegisteredClaims
}

func (c *Claims) Principal() authz.Principal {
	return authz.Principal{UserID: c.UserID, Roles: c.Roles}
}

// ParseAccessToken verifies an HS256 access token and returns its claims.
func ParseAccessToken(secret []byte, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == uuid.Nil {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// AuthMiddleware rejects requests without a valid bearer token and attaches
// the caller's principal to the request context.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := extractBearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized: missing token")
				return
			}

			claims, err := ParseAccessToken(secret, tokenStr)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized: invalid token")
				return
			}

			ctx := authz.WithPrincipal(r.Context(), claims.Principal())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header missing")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("invalid authorization format")
	}
	return parts[1], nil
}

// RoleBasedMiddleware is a coarse gate in front of whole route groups. The
// services still check every call through authz.
func RoleBasedMiddleware(allowedRoles ...models.Role) func(http.Handler) http.Handler {
	allowed := make(map[models.Role]bool)
	for _, role := range allowedRoles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := authz.FromContext(r.Context())
			if !p.Authenticated() {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			for _, role := range p.Roles {
				if allowed[role] {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeError(w, http.StatusForbidden, "forbidden: insufficient role")
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
