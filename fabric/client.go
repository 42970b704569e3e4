package fabric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultBaseURL is the production Fabric API endpoint.
	DefaultBaseURL = "https://api.fabric.microsoft.com"

	// defaultTimeout bounds every request; the pipeline has no retries,
	// so a hung connection surfaces as a transport error after this long.
	defaultTimeout = 120 * time.Second

	// clientReferer identifies this client to the service. Always sent,
	// never overridable by the caller.
	clientReferer = "FabricGoAirflowClient"

	defaultTokenScheme = "Bearer"
)

// TokenSource provides bearer tokens for the Authorization header.
// Defined at the consumer per Go convention "accept interfaces, return
// structs"; TokenCache is the usual implementation.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// RequestIDExtractor pulls a request correlation id out of a completed
// response. Different backend layers report the id differently (headers vs
// response body), so the extraction step is overridable per deployment.
type RequestIDExtractor func(headers http.Header, body any) string

// requestIDHeaders lists the headers probed for a correlation id, in
// fallback order.
var requestIDHeaders = []string{
	"x-request-id",
	"x-ms-request-id",
	"request-id",
	"x-correlation-id",
}

// DefaultRequestIDExtractor checks the common correlation id headers, then
// falls back to a requestId/request_id field inside a JSON object body —
// the Fabric control plane reports the id in-body rather than in headers.
func DefaultRequestIDExtractor(headers http.Header, body any) string {
	for _, name := range requestIDHeaders {
		if v := headers.Get(name); v != "" {
			return v
		}
	}

	if m, ok := body.(map[string]any); ok {
		for _, key := range []string{"requestId", "request_id"} {
			if v, ok := m[key].(string); ok && v != "" {
				return v
			}
		}
	}

	return ""
}

// QueryParam is a single query string pair. Requests carry parameters as an
// ordered slice rather than a url.Values map so that repeated keys and the
// caller's ordering survive serialization.
type QueryParam struct {
	Key   string
	Value string
}

// Params is a convenience constructor for query parameter lists.
// Arguments are alternating key, value pairs.
func Params(kv ...string) []QueryParam {
	if len(kv)%2 != 0 {
		panic("fabric: Params requires an even number of arguments")
	}

	params := make([]QueryParam, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		params = append(params, QueryParam{Key: kv[i], Value: kv[i+1]})
	}

	return params
}

// RequestSpec describes one logical API request. Exactly one of JSONBody and
// RawBody may be set. Stream keeps the response body as raw bytes instead of
// decoding it. NoRaise suppresses error classification: the envelope is
// returned for failure statuses instead of an *APIError.
type RequestSpec struct {
	Method   string
	Path     string
	Query    []QueryParam
	JSONBody any
	RawBody  []byte
	Headers  map[string]string
	Stream   bool
	NoRaise  bool
}

// Response is the normalized envelope constructed for every completed HTTP
// exchange, success or failure. Exactly one of JSON, Text, and (in stream
// mode) Bytes-as-body is the authoritative decoded view; Body returns it.
// Bytes always holds the raw response bytes for typed decoding via Decode.
type Response struct {
	Status    int
	Headers   http.Header
	RequestID string

	JSON  any
	Text  string
	Bytes []byte

	stream bool
}

// Body returns the decoded body: the parsed JSON value, the response text,
// or the raw bytes when the request was made in stream mode.
func (r *Response) Body() any {
	switch {
	case r.stream:
		return r.Bytes
	case r.JSON != nil:
		return r.JSON
	case r.Text != "":
		return r.Text
	default:
		return nil
	}
}

// Decode unmarshals the raw response bytes into v.
func (r *Response) Decode(v any) error {
	if len(r.Bytes) == 0 {
		return fmt.Errorf("fabric: empty response body")
	}

	if err := json.Unmarshal(r.Bytes, v); err != nil {
		return fmt.Errorf("fabric: decoding response body: %w", err)
	}

	return nil
}

// Client executes logical requests against the Fabric API. It resolves URLs
// against a fixed base, injects authentication and identification headers,
// classifies responses, and raises the matching *APIError on failure.
//
// The pipeline performs no retries; callers wanting retry or backoff wrap
// Do. Transport-level failures (DNS, connection reset, timeout) propagate
// as wrapped transport errors, not as *APIError — there is no HTTP response
// to classify.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	scheme     string
	preview    bool
	logger     *slog.Logger

	extractRequestID RequestIDExtractor
}

// Option configures a Client.
type Option func(*Client)

// WithPreview toggles preview mode: preview=true is added to every request's
// query string unless the caller already set a preview parameter.
func WithPreview(enabled bool) Option {
	return func(c *Client) { c.preview = enabled }
}

// WithTokenScheme overrides the Authorization scheme (default "Bearer").
func WithTokenScheme(scheme string) Option {
	return func(c *Client) { c.scheme = scheme }
}

// WithRequestIDExtractor overrides correlation id extraction for deployments
// whose gateway layers report the id elsewhere.
func WithRequestIDExtractor(fn RequestIDExtractor) Option {
	return func(c *Client) { c.extractRequestID = fn }
}

// NewClient creates a Fabric API client. baseURL is typically DefaultBaseURL.
// A nil httpClient gets a default client with the fixed pipeline timeout.
func NewClient(baseURL string, httpClient *http.Client, tokens TokenSource, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	c := &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		httpClient:       httpClient,
		tokens:           tokens,
		scheme:           defaultTokenScheme,
		logger:           logger,
		extractRequestID: DefaultRequestIDExtractor,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Do executes one logical request and returns the response envelope.
//
// The envelope is constructed for every completed exchange before error
// classification, so a non-nil *Response accompanies classified failures:
// on a failure status Do returns both the envelope and the *APIError unless
// spec.NoRaise is set, in which case the envelope alone is returned.
func (c *Client) Do(ctx context.Context, spec RequestSpec) (*Response, error) {
	if spec.JSONBody != nil && spec.RawBody != nil {
		return nil, fmt.Errorf("fabric: request may carry a JSON body or a raw body, not both")
	}

	u, err := c.buildURL(spec.Path, spec.Query)
	if err != nil {
		return nil, err
	}

	body, err := requestBody(spec)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("fabric: creating request: %w", err)
	}

	if err := c.setHeaders(ctx, req, spec.Headers); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failures are not remapped into the error taxonomy.
		return nil, fmt.Errorf("fabric: %s %s: %w", spec.Method, spec.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fabric: reading response body: %w", err)
	}

	envelope := buildEnvelope(resp, raw, spec.Stream)
	envelope.RequestID = c.extractRequestID(resp.Header, envelope.JSON)

	if isSuccess(resp.StatusCode) {
		c.logger.Debug("request succeeded",
			slog.String("method", spec.Method),
			slog.String("path", spec.Path),
			slog.Int("status", resp.StatusCode),
		)

		return envelope, nil
	}

	apiErr := &APIError{
		Status:    envelope.Status,
		Message:   errorMessage(envelope.JSON, envelope.Text, envelope.Status),
		RequestID: envelope.RequestID,
		Body:      envelope.Body(),
		Headers:   envelope.Headers,
		Err:       classifyStatus(envelope.Status),
	}

	c.logger.Warn("request failed",
		slog.String("method", spec.Method),
		slog.String("path", spec.Path),
		slog.Int("status", envelope.Status),
		slog.String("request_id", envelope.RequestID),
	)

	if spec.NoRaise {
		return envelope, nil
	}

	return envelope, apiErr
}

// buildURL joins the base URL with path and serializes query parameters in
// caller order, with repeated keys emitted as repeated pairs. Preview mode
// appends preview=true only when the caller did not set one themselves.
func (c *Client) buildURL(path string, query []QueryParam) (string, error) {
	if path == "" {
		return "", fmt.Errorf("fabric: request path is empty")
	}

	u := c.baseURL + "/" + strings.TrimLeft(path, "/")

	params := query
	if c.preview && !hasParam(query, "preview") {
		params = append(append([]QueryParam(nil), query...), QueryParam{Key: "preview", Value: "true"})
	}

	if len(params) == 0 {
		return u, nil
	}

	var sb strings.Builder
	for i, p := range params {
		if i > 0 {
			sb.WriteByte('&')
		}

		sb.WriteString(url.QueryEscape(p.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.Value))
	}

	return u + "?" + sb.String(), nil
}

func hasParam(query []QueryParam, key string) bool {
	for _, p := range query {
		if p.Key == key {
			return true
		}
	}

	return false
}

// requestBody returns the reader for the request body, or nil when empty.
func requestBody(spec RequestSpec) (io.Reader, error) {
	switch {
	case spec.JSONBody != nil:
		data, err := json.Marshal(spec.JSONBody)
		if err != nil {
			return nil, fmt.Errorf("fabric: encoding request body: %w", err)
		}

		return bytes.NewReader(data), nil
	case spec.RawBody != nil:
		return bytes.NewReader(spec.RawBody), nil
	default:
		return nil, nil
	}
}

// setHeaders builds the request headers: caller-supplied headers first,
// JSON defaults for Accept/Content-Type when absent, then Authorization and
// the client identification header, which the caller cannot override.
func (c *Client) setHeaders(ctx context.Context, req *http.Request, extra map[string]string) error {
	for k, v := range extra {
		req.Header.Set(k, v)
	}

	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("fabric: obtaining token: %w", err)
	}

	req.Header.Set("Authorization", c.scheme+" "+token)
	req.Header.Set("Referer", clientReferer)

	return nil
}

// buildEnvelope normalizes a completed HTTP exchange. JSON bodies are parsed
// when the response declares a JSON content type; otherwise the body is kept
// as text. In stream mode the raw bytes are the body and no decoding happens.
func buildEnvelope(resp *http.Response, raw []byte, stream bool) *Response {
	envelope := &Response{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Bytes:   raw,
		stream:  stream,
	}

	if stream || len(raw) == 0 {
		return envelope
	}

	if isJSONContentType(resp.Header.Get("Content-Type")) {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			envelope.JSON = v
			return envelope
		}
	}

	if utf8.Valid(raw) {
		envelope.Text = string(raw)
	}

	return envelope
}

func isJSONContentType(ct string) bool {
	return strings.Contains(ct, "application/json") || strings.Contains(ct, "text/json")
}

// ----- Verb helpers for the common JSON request shape -----

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query []QueryParam) (*Response, error) {
	return c.Do(ctx, RequestSpec{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request with an optional JSON body.
func (c *Client) Post(ctx context.Context, path string, body any, query []QueryParam) (*Response, error) {
	return c.Do(ctx, RequestSpec{Method: http.MethodPost, Path: path, JSONBody: body, Query: query})
}

// Put performs a PUT request with an optional JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, query []QueryParam) (*Response, error) {
	return c.Do(ctx, RequestSpec{Method: http.MethodPut, Path: path, JSONBody: body, Query: query})
}

// Patch performs a PATCH request with an optional JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any, query []QueryParam) (*Response, error) {
	return c.Do(ctx, RequestSpec{Method: http.MethodPatch, Path: path, JSONBody: body, Query: query})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, query []QueryParam) (*Response, error) {
	return c.Do(ctx, RequestSpec{Method: http.MethodDelete, Path: path, Query: query})
}
