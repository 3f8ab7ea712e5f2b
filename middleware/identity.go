// Package middleware binds TutorLink identities to HTTP requests and guards
// routes by role.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tutorlink/tutorlink-utils-tokenx"
)

// Config configures the identity middleware.
type Config struct {
	// Reader decodes tokens when no Verifier is set (default: tokenx.DefaultReader()).
	Reader *tokenx.Reader
	// Verifier, when set, checks signatures before an identity is bound.
	Verifier *tokenx.Verifier
	// Issuer selects the verifier issuer; empty uses its only issuer.
	Issuer string
	// TokenExtractor locates the token (default: Authorization header, then "access_token" cookie).
	TokenExtractor TokenExtractor
	// DevBypass binds a synthetic caller to every request. Local development only.
	DevBypass *tokenx.DevBypassClaims
	// Logger receives decode and verification failures (default: slog.Default()).
	Logger *slog.Logger
}

// Middleware holds the configuration shared by the identity handlers.
type Middleware struct {
	cfg Config
}

// New creates a Middleware, filling defaults for unset fields.
func New(cfg Config) *Middleware {
	if cfg.Reader == nil {
		cfg.Reader = tokenx.DefaultReader()
	}
	if cfg.TokenExtractor == nil {
		cfg.TokenExtractor = FromFirst(FromAuthHeader(), FromCookie("access_token"))
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Middleware{cfg: cfg}
}

// WithIdentity binds the caller carried by the request's token to the context.
// Requests without a usable token continue anonymously.
func (mw *Middleware) WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if mw.cfg.DevBypass != nil {
			ctx := tokenx.BindCaller(r.Context(), mw.cfg.DevBypass.ToCaller())
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		token := mw.cfg.TokenExtractor(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		caller, err := mw.resolve(r.Context(), token)
		if err != nil {
			code, _ := tokenx.CodeOf(err)
			mw.cfg.Logger.DebugContext(r.Context(), "token rejected",
				slog.String("code", string(code)),
				slog.String("path", r.URL.Path),
				slog.Any("error", err),
			)
			next.ServeHTTP(w, r)
			return
		}

		ctx := tokenx.BindCaller(r.Context(), caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (mw *Middleware) resolve(ctx context.Context, token string) (tokenx.Caller, error) {
	if mw.cfg.Verifier != nil {
		identity, err := mw.cfg.Verifier.Verify(ctx, token, mw.cfg.Issuer)
		if err != nil {
			return tokenx.Caller{}, err
		}
		return tokenx.Caller{Identity: identity, Verified: true}, nil
	}
	claims, err := mw.cfg.Reader.ParseClaims(token)
	if err != nil {
		return tokenx.Caller{}, err
	}
	return tokenx.Caller{Identity: mw.cfg.Reader.IdentityFromClaims(claims)}, nil
}

// RequireRole rejects requests without a bound identity (401) or whose role is
// not one of roles (403). With no roles, any caller with a decodable token passes.
func (mw *Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if len(roles) > 0 && !identity.HasRole(roles...) {
				mw.cfg.Logger.InfoContext(r.Context(), "role not allowed",
					slog.String("role", identity.Role),
					slog.Any("allowed", roles),
					slog.String("path", r.URL.Path),
				)
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext returns the identity bound by WithIdentity.
func IdentityFromContext(ctx context.Context) (*tokenx.Identity, bool) {
	caller, ok := tokenx.CallerFromContext(ctx)
	if !ok || caller.Identity == nil {
		return nil, false
	}
	return caller.Identity, true
}
