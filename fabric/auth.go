package fabric

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultAuthority is the Microsoft Entra ID login endpoint.
	DefaultAuthority = "https://login.microsoftonline.com"

	// DefaultScope is the Fabric API scope requested during token exchange.
	DefaultScope = "https://api.fabric.microsoft.com/.default"

	// defaultExpiryMargin is the safety window before actual expiry within
	// which a cached token is treated as absent and refreshed.
	defaultExpiryMargin = 5 * time.Minute

	// defaultTokenTTL is assumed when neither the exchange response nor the
	// token's own exp claim carry an expiry.
	defaultTokenTTL = time.Hour
)

// Credential exchanges configured credential material for an access token.
// Implementations return the token and its expiry; a zero expiry means the
// exchange did not report one and the caller derives it from the token.
type Credential interface {
	ExchangeToken(ctx context.Context, scope string) (token string, expiry time.Time, err error)

	// Method names the exchange flow for diagnostics ("ServicePrincipal",
	// "Interactive", ...).
	Method() string
}

// SecretCredential performs the OAuth2 client-credentials exchange for a
// service principal. TenantID and ClientID are required; Authority defaults
// to DefaultAuthority.
type SecretCredential struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Authority    string
}

// ExchangeToken requests an access token from the tenant's token endpoint.
// Authentication provider failures propagate wrapped but unclassified —
// retry policy is a caller concern.
func (c *SecretCredential) ExchangeToken(ctx context.Context, scope string) (string, time.Time, error) {
	if c.TenantID == "" || c.ClientID == "" {
		return "", time.Time{}, fmt.Errorf(
			"%w: tenant id and client id are required for service principal authentication", ErrConfiguration)
	}

	cfg := &clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     tokenEndpoint(c.Authority, c.TenantID),
		Scopes:       []string{scope},
	}

	tok, err := cfg.Token(ctx)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("fabric: client credential exchange: %w", err)
	}

	return tok.AccessToken, tok.Expiry, nil
}

func (c *SecretCredential) Method() string { return "ServicePrincipal" }

func tokenEndpoint(authority, tenantID string) string {
	if authority == "" {
		authority = DefaultAuthority
	}

	return strings.TrimRight(authority, "/") + "/" + tenantID + "/oauth2/v2.0/token"
}

func authorizeEndpoint(authority, tenantID string) string {
	if authority == "" {
		authority = DefaultAuthority
	}

	return strings.TrimRight(authority, "/") + "/" + tenantID + "/oauth2/v2.0/authorize"
}

func endpointFor(authority, tenantID string) oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:  authorizeEndpoint(authority, tenantID),
		TokenURL: tokenEndpoint(authority, tenantID),
	}
}

// TokenStatus describes the cache state without touching it.
type TokenStatus struct {
	HasToken   bool
	Expired    bool
	Expiry     time.Time
	AuthMethod string
}

// TokenCache produces a valid bearer token on demand, minimizing round
// trips to the credential exchange endpoint. A cached token is reused until
// it comes within the expiry margin of its expiry; refresh then replaces
// token and expiry in one swap.
//
// The mutex makes concurrent use safe; the synchronous call model otherwise
// assumes one caller at a time. A failed refresh leaves the cache unchanged.
type TokenCache struct {
	credential Credential
	scope      string
	margin     time.Duration
	ttl        time.Duration
	logger     *slog.Logger

	// now is swapped out by tests to control the clock.
	now func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// TokenOption configures a TokenCache.
type TokenOption func(*TokenCache)

// WithExpiryMargin overrides the refresh safety margin (default 5 minutes).
func WithExpiryMargin(d time.Duration) TokenOption {
	return func(tc *TokenCache) { tc.margin = d }
}

// WithDefaultTTL overrides the assumed lifetime for tokens whose exchange
// reported no expiry and that carry no exp claim (default one hour).
func WithDefaultTTL(d time.Duration) TokenOption {
	return func(tc *TokenCache) { tc.ttl = d }
}

// WithCachedToken seeds the cache with a previously acquired token, e.g.
// one persisted across CLI invocations.
func WithCachedToken(token string, expiry time.Time) TokenOption {
	return func(tc *TokenCache) {
		tc.token = token
		tc.expiry = expiry
	}
}

// NewTokenCache creates a token cache over the given credential. An empty
// scope defaults to DefaultScope.
func NewTokenCache(credential Credential, scope string, logger *slog.Logger, opts ...TokenOption) *TokenCache {
	if logger == nil {
		logger = slog.Default()
	}

	if scope == "" {
		scope = DefaultScope
	}

	tc := &TokenCache{
		credential: credential,
		scope:      scope,
		margin:     defaultExpiryMargin,
		ttl:        defaultTokenTTL,
		logger:     logger,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(tc)
	}

	return tc
}

// Token returns a valid bearer token, reusing the cached one when it is not
// within the expiry margin and performing a credential exchange otherwise.
// Exchange failures propagate unchanged and do not evict a cached token.
func (tc *TokenCache) Token(ctx context.Context) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.usable() {
		return tc.token, nil
	}

	if tc.credential == nil {
		return "", fmt.Errorf("%w: no credential configured", ErrConfiguration)
	}

	tc.logger.Debug("exchanging credential for token",
		slog.String("method", tc.credential.Method()),
		slog.String("scope", tc.scope),
	)

	token, expiry, err := tc.credential.ExchangeToken(ctx, tc.scope)
	if err != nil {
		return "", err
	}

	if expiry.IsZero() {
		expiry = expiryFromClaims(token, tc.now().Add(tc.ttl))
	}

	tc.token = token
	tc.expiry = expiry.UTC()

	tc.logger.Info("token acquired",
		slog.String("method", tc.credential.Method()),
		slog.Time("expiry", tc.expiry),
	)

	return tc.token, nil
}

// Invalidate clears the cached token unconditionally; the next Token call
// performs a fresh exchange.
func (tc *TokenCache) Invalidate() {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.token = ""
	tc.expiry = time.Time{}
}

// Describe reports the cache state: whether a token is present, whether it
// is expired under the safety margin, its expiry, and which exchange method
// a refresh would use. Pure read, no side effects.
func (tc *TokenCache) Describe() TokenStatus {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	status := TokenStatus{
		HasToken: tc.token != "",
		Expired:  !tc.usable(),
		Expiry:   tc.expiry,
	}

	if tc.credential != nil {
		status.AuthMethod = tc.credential.Method()
	}

	return status
}

// usable reports whether the cached token exists and is outside the expiry
// margin. Callers must hold tc.mu.
func (tc *TokenCache) usable() bool {
	if tc.token == "" || tc.expiry.IsZero() {
		return false
	}

	return tc.now().Before(tc.expiry.Add(-tc.margin))
}

// expiryFromClaims decodes the token's embedded exp claim without verifying
// the signature. Tokens that cannot be parsed or carry no exp claim get the
// fallback expiry.
func expiryFromClaims(token string, fallback time.Time) time.Time {
	claims := jwt.MapClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fallback
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fallback
	}

	return exp.Time.UTC()
}
