package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gehringer/solarboard/pkg/log"
)

const googleIssuer = "https://accounts.google.com"

// tokenValidator verifies a raw ID token and returns the email it was issued
// for.
type tokenValidator func(ctx context.Context, rawIDToken string) (string, error)

// newGoogleValidator returns a tokenValidator for Google ID tokens issued to
// audience.
func newGoogleValidator(ctx context.Context, audience string) (tokenValidator, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: audience})
	return func(ctx context.Context, rawIDToken string) (string, error) {
		idToken, err := verifier.Verify(ctx, rawIDToken)
		if err != nil {
			return "", err
		}
		var claims struct {
			Email string `json:"email"`
		}
		if err := idToken.Claims(&claims); err != nil {
			return "", fmt.Errorf("failed to parse id token claims: %w", err)
		}
		return claims.Email, nil
	}, nil
}

// updateAuthMiddleware requires a Bearer ID token for updateSpecificEmail when
// an update audience is configured. Without one every request passes.
func (s *Server) updateAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.updateSpecificAudience == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.writeJSONError(w, "missing authorization header", http.StatusUnauthorized)
			return
		}
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			log.Ctx(ctx).WarnContext(ctx, "invalid auth header for update")
			s.writeJSONError(w, "invalid authorization header", http.StatusUnauthorized)
			return
		}

		email, err := s.tokenValidator(ctx, token)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "update token validation failed", slog.Any("error", err))
			s.writeJSONError(w, "invalid id token", http.StatusUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(email), []byte(s.updateSpecificEmail)) != 1 {
			log.Ctx(ctx).WarnContext(ctx, "update email mismatch", slog.String("got", email))
			s.writeJSONError(w, "unauthorized email", http.StatusForbidden)
			return
		}
		log.Ctx(ctx).DebugContext(ctx, "update authorized", slog.String("email", email))
		next.ServeHTTP(w, r)
	})
}
