package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
)

const (
	tenantHeader = "X-Tenant-Id"
	userHeader   = "X-User-Id"
)

// AuthConfig controls how the caller's tenant and user are resolved.
type AuthConfig struct {
	JWTSecret     string
	AllowHeaders  bool
	DefaultTenant string
}

// Principal is the authenticated caller of a request.
type Principal struct {
	Tenant domain.Tenant
	UserID string
	Source string
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	noteAccessPrincipal(ctx, p)
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && !p.Tenant.IsZero()
}

type jwtClaims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
}

func authenticateJWT(token, secret string) (Principal, error) {
	if strings.TrimSpace(secret) == "" {
		return Principal{}, errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwtClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return Principal{}, err
	}
	if !parsed.Valid {
		return Principal{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return Principal{}, errors.New("subject claim required")
	}
	tenant, err := domain.NewTenant(claims.TenantID)
	if err != nil {
		return Principal{}, errors.New("tenant_id claim required")
	}
	return Principal{Tenant: tenant, UserID: claims.Subject, Source: "jwt"}, nil
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// authMiddleware resolves the principal from a bearer token. When headers are
// allowed, X-Tenant-Id and X-User-Id are accepted in place of a token.
func authMiddleware(cfg AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
				principal, err := authenticateJWT(token, cfg.JWTSecret)
				if err != nil {
					logger.Warn("auth_token_rejected", "request_id", requestIDFromContext(r.Context()), "error", err)
					writeError(w, r, domain.NewError(domain.ErrUnauthorized, "Token inválido."))
					return
				}
				next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
				return
			}

			if cfg.AllowHeaders {
				tenantID := strings.TrimSpace(r.Header.Get(tenantHeader))
				if tenantID == "" {
					tenantID = cfg.DefaultTenant
				}
				if tenant, err := domain.NewTenant(tenantID); err == nil {
					principal := Principal{
						Tenant: tenant,
						UserID: strings.TrimSpace(r.Header.Get(userHeader)),
						Source: "header",
					}
					next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
					return
				}
			}

			writeError(w, r, domain.NewError(domain.ErrUnauthorized, "Autenticação obrigatória."))
		})
	}
}
