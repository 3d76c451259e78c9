package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"roombook/internal/auth"
	apperrors "roombook/pkg/errors"
	httputil "roombook/pkg/http"
	"roombook/pkg/logger"
)

// Claims carries the caller identity. Tokens may list roles under "roles"
// or a single "role".
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	Role  string   `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Caller() auth.Caller {
	roles := c.Roles
	if c.Role != "" {
		roles = append(roles, c.Role)
	}
	return auth.NewCaller(c.Subject, roles...)
}

var errMissingSubject = errors.New("token has no subject")

// ParseToken validates an HS256 token signed with secret.
func ParseToken(raw, secret string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errMissingSubject
	}
	return claims, nil
}

// Identity resolves the bearer token into an auth.Caller on the request
// context. Requests without an Authorization header pass through anonymous;
// handlers decide whether that is enough.
func Identity(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				rejectUnauthorized(w, log, r, "missing bearer token", nil)
				return
			}

			claims, err := ParseToken(strings.TrimSpace(raw), secret)
			if err != nil {
				rejectUnauthorized(w, log, r, "invalid token", err)
				return
			}

			ctx := auth.WithCaller(r.Context(), claims.Caller())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func rejectUnauthorized(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string, err error) {
	log.Warn("Rejected request credentials",
		"request_id", RequestID(r.Context()),
		"reason", reason,
		"path", r.URL.Path,
		"error", err,
	)
	_ = httputil.WriteError(w, apperrors.Unauthorized("Invalid or missing credentials"))
}
