package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

type contextKey string

// SubjectKey is the context key under which the middleware stores the verified
// subject claim.
const SubjectKey = contextKey("authSubject")

const (
	jwksRefreshInterval = 1 * time.Hour
	clockSkewLeeway     = 30 * time.Second
)

// Verifier validates bearer tokens issued by the identity provider and
// extracts the subject claim.
type Verifier struct {
	keyfunc  jwt.Keyfunc
	issuer   string
	audience string
	cancel   context.CancelFunc
}

// NewVerifier builds a Verifier from the provider's tenant domain. Signing
// keys come from the tenant's JWKS endpoint and are refreshed in the
// background until Close is called.
func NewVerifier(domain, audience string) (*Verifier, error) {
	issuer := fmt.Sprintf("https://%s/", domain)
	jwksURL := issuer + ".well-known/jwks.json"

	ctx, cancel := context.WithCancel(context.Background())

	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Ctx:             ctx,
		RefreshInterval: jwksRefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			log.Error().Err(err).Str("jwks_url", jwksURL).Msg("Failed to refresh JWKS")
		},
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", jwksURL, err)
	}

	jwks, err := keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: storage})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build keyfunc: %w", err)
	}

	return &Verifier{
		keyfunc:  jwks.Keyfunc,
		issuer:   issuer,
		audience: audience,
		cancel:   cancel,
	}, nil
}

// NewVerifierWithKeyfunc builds a Verifier around an externally supplied
// keyfunc. Used by tests, which sign their own tokens.
func NewVerifierWithKeyfunc(kf jwt.Keyfunc, issuer, audience string) *Verifier {
	return &Verifier{keyfunc: kf, issuer: issuer, audience: audience}
}

// Close stops the background JWKS refresh.
func (v *Verifier) Close() {
	if v.cancel != nil {
		v.cancel()
	}
}

// Validate parses a raw token and returns its subject claim.
func (v *Verifier) Validate(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, v.keyfunc,
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkewLeeway),
	)
	if err != nil {
		return "", err
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("token has no subject claim")
	}
	return subject, nil
}

// Middleware creates a middleware for protecting routes. On success the
// subject claim is available through SubjectFromContext.
func (v *Verifier) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || tokenStr == "" {
				http.Error(w, "Missing auth token", http.StatusUnauthorized)
				return
			}

			subject, err := v.Validate(tokenStr)
			if err != nil {
				log.Warn().Err(err).Msg("Rejected bearer token")
				http.Error(w, "Invalid auth token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), SubjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext returns the verified subject id set by the middleware.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(SubjectKey).(string)
	return subject, ok
}
