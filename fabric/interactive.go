package fabric

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pkg/browser"
	"golang.org/x/oauth2"
)

// defaultPublicClientID is the well-known Azure CLI public client, usable
// for delegated sign-in when the caller registers no app of their own.
const defaultPublicClientID = "04b07795-8ddb-461a-bbee-02f9e1bf7b46"

// stateTokenBytes is the number of random bytes for the OAuth2 state parameter.
const stateTokenBytes = 16

// callbackShutdownTimeout is how long to wait for the callback server to drain.
const callbackShutdownTimeout = 5 * time.Second

// InteractiveCredential performs a browser-delegated authorization code +
// PKCE exchange: it binds a localhost callback server, opens the browser to
// the tenant's authorization endpoint, and trades the returned code for an
// access token. TenantID is required; ClientID defaults to the well-known
// Azure CLI public client, Authority to DefaultAuthority.
//
// OpenURL is called with the authorization URL; nil launches the default
// browser. If opening fails, the URL is printed to stderr so the user can
// open it manually.
type InteractiveCredential struct {
	TenantID  string
	ClientID  string
	Authority string
	OpenURL   func(string) error
	Logger    *slog.Logger
}

func (c *InteractiveCredential) Method() string { return "Interactive" }

// callbackOutcome carries the authorization code or error from the callback
// handler.
type callbackOutcome struct {
	code string
	err  error
}

// ExchangeToken runs the interactive flow to completion, blocking until the
// user authorizes in the browser or ctx is canceled.
func (c *InteractiveCredential) ExchangeToken(ctx context.Context, scope string) (string, time.Time, error) {
	if c.TenantID == "" {
		return "", time.Time{}, fmt.Errorf(
			"%w: tenant id is required for interactive authentication", ErrConfiguration)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clientID := c.ClientID
	if clientID == "" {
		clientID = defaultPublicClientID
	}

	cfg := &oauth2.Config{
		ClientID: clientID,
		Scopes:   []string{scope},
		Endpoint: endpointFor(c.Authority, c.TenantID),
	}

	resultCh := make(chan callbackOutcome, 1)
	mux := http.NewServeMux()

	srv, port, err := startCallbackServer(ctx, mux, resultCh, logger)
	if err != nil {
		return "", time.Time{}, err
	}

	defer shutdownCallbackServer(srv, logger)

	// Redirect must match the registered "http://localhost" URI exactly;
	// the v2.0 endpoint ignores the port.
	cfg.RedirectURL = fmt.Sprintf("http://localhost:%d", port)

	verifier := oauth2.GenerateVerifier()

	state, err := generateState()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("fabric: generating state token: %w", err)
	}

	registerCallbackHandler(mux, state, resultCh)

	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)

	c.launchBrowser(authURL, logger)

	code, err := waitForCallback(ctx, resultCh)
	if err != nil {
		return "", time.Time{}, err
	}

	logger.Info("received authorization code, exchanging for token")

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("fabric: token exchange failed: %w", err)
	}

	logger.Info("interactive authorization successful", slog.Time("expiry", tok.Expiry))

	return tok.AccessToken, tok.Expiry, nil
}

// startCallbackServer binds to 127.0.0.1:0 and starts an HTTP server with
// the given mux. Returns the server, the bound port, and any error.
func startCallbackServer(
	ctx context.Context,
	mux *http.ServeMux,
	resultCh chan<- callbackOutcome,
	logger *slog.Logger,
) (*http.Server, int, error) {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, 0, fmt.Errorf("fabric: binding localhost listener: %w", err)
	}

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		listener.Close()
		return nil, 0, fmt.Errorf("fabric: listener address is not TCP")
	}

	port := tcpAddr.Port
	logger.Info("callback server listening", slog.Int("port", port))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: callbackShutdownTimeout,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			resultCh <- callbackOutcome{err: fmt.Errorf("fabric: callback server error: %w", serveErr)}
		}
	}()

	return srv, port, nil
}

// registerCallbackHandler adds the callback route to the mux.
// Must be called before the browser redirects back.
func registerCallbackHandler(mux *http.ServeMux, state string, resultCh chan<- callbackOutcome) {
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		handleAuthCallback(w, r, state, resultCh)
	})
}

// handleAuthCallback validates the state, extracts the code, and sends the
// result.
func handleAuthCallback(w http.ResponseWriter, r *http.Request, state string, resultCh chan<- callbackOutcome) {
	query := r.URL.Query()

	if query.Get("state") != state {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		resultCh <- callbackOutcome{err: fmt.Errorf("fabric: OAuth2 state mismatch (possible CSRF)")}

		return
	}

	if errParam := query.Get("error"); errParam != "" {
		http.Error(w, "Authorization failed: "+errParam, http.StatusBadRequest)
		resultCh <- callbackOutcome{
			err: fmt.Errorf("fabric: authorization failed: %s: %s", errParam, query.Get("error_description")),
		}

		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		resultCh <- callbackOutcome{err: fmt.Errorf("fabric: callback missing authorization code")}

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>Authentication successful</h1>"+
		"<p>You can close this window and return to the terminal.</p></body></html>")
	resultCh <- callbackOutcome{code: code}
}

// shutdownCallbackServer gracefully shuts down the callback HTTP server.
func shutdownCallbackServer(srv *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), callbackShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		// Best-effort shutdown since we're in a defer.
		logger.Warn("callback server shutdown error", slog.String("error", err.Error()))
	}
}

// launchBrowser attempts to open the auth URL. If it fails, prints the URL
// to stderr as a fallback so the user can copy-paste it.
func (c *InteractiveCredential) launchBrowser(authURL string, logger *slog.Logger) {
	logger.Info("opening browser for authorization")

	open := c.OpenURL
	if open == nil {
		open = browser.OpenURL
	}

	if openErr := open(authURL); openErr != nil {
		logger.Warn("failed to open browser, printing URL",
			slog.String("error", openErr.Error()),
		)

		fmt.Fprintf(os.Stderr, "Open this URL in your browser:\n%s\n", authURL)
	}
}

// waitForCallback blocks until the callback fires or the context is canceled.
func waitForCallback(ctx context.Context, resultCh <-chan callbackOutcome) (string, error) {
	select {
	case result := <-resultCh:
		if result.err != nil {
			return "", result.err
		}

		return result.code, nil
	case <-ctx.Done():
		return "", fmt.Errorf("fabric: interactive auth canceled: %w", ctx.Err())
	}
}

// generateState produces a cryptographically random hex string for the
// OAuth2 state parameter.
func generateState() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
