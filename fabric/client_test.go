package fabric

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticToken is a test TokenSource that returns a fixed token.
type staticToken string

func (t staticToken) Token(_ context.Context) (string, error) {
	return string(t), nil
}

// failingToken is a test TokenSource that always returns an error.
type failingToken struct{}

func (failingToken) Token(_ context.Context) (string, error) {
	return "", errors.New("token error")
}

// newTestClient creates a Client pointing at the given httptest server.
func newTestClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()

	return NewClient(url, http.DefaultClient, staticToken("test-token"), slog.Default(), opts...)
}

func TestDo_SuccessStatuses(t *testing.T) {
	for _, status := range []int{200, 201, 202, 204} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		client := newTestClient(t, srv.URL)
		resp, err := client.Get(context.Background(), "/v1/ping", nil)

		require.NoError(t, err, "status %d", status)
		assert.Equal(t, status, resp.Status)

		srv.Close()
	}
}

func TestDo_ErrorClassification(t *testing.T) {
	cases := []struct {
		status   int
		sentinel error
	}{
		{400, ErrValidation},
		{401, ErrUnauthenticated},
		{403, ErrForbidden},
		{404, ErrNotFound},
		{409, ErrClient},
		{418, ErrClient},
		{500, ErrServer},
		{503, ErrServer},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"message":"boom"}`))
		}))

		client := newTestClient(t, srv.URL)
		resp, err := client.Get(context.Background(), "/v1/thing", nil)

		require.Error(t, err, "status %d", tc.status)
		assert.True(t, errors.Is(err, tc.sentinel), "status %d should map to %v", tc.status, tc.sentinel)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, tc.status, apiErr.Status)
		assert.Equal(t, "boom", apiErr.Message)

		// The envelope is constructed before classification and returned
		// alongside the error.
		require.NotNil(t, resp)
		assert.Equal(t, tc.status, resp.Status)

		srv.Close()
	}
}

func TestDo_NoRaiseReturnsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"gone"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	resp, err := client.Do(context.Background(), RequestSpec{
		Method:  http.MethodGet,
		Path:    "/v1/thing",
		NoRaise: true,
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, map[string]any{"message": "gone"}, resp.JSON)
}

func TestDo_NotFoundCarriesBodyRequestID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found","requestId":"abc-123"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Get(context.Background(), "/v1/thing", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "abc-123", apiErr.RequestID)
	assert.Equal(t, "[404] not found (Request ID: abc-123)", apiErr.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDo_RequestIDHeaderPrecedence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("x-ms-request-id", "from-header")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad","requestId":"from-body"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Get(context.Background(), "/v1/thing", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "from-header", apiErr.RequestID)
}

func TestDo_CustomRequestIDExtractor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("x-gateway-trace", "trace-9")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, WithRequestIDExtractor(func(h http.Header, _ any) string {
		return h.Get("x-gateway-trace")
	}))

	resp, err := client.Get(context.Background(), "/v1/thing", nil)
	require.NoError(t, err)
	assert.Equal(t, "trace-9", resp.RequestID)
}

func TestDo_HeaderRules(t *testing.T) {
	var got http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Do(context.Background(), RequestSpec{
		Method: http.MethodGet,
		Path:   "/v1/thing",
		Headers: map[string]string{
			"Accept":        "application/zip",
			"Authorization": "Bearer attacker-token",
		},
	})
	require.NoError(t, err)

	// Caller-supplied Accept survives; defaults apply only when absent.
	assert.Equal(t, "application/zip", got.Get("Accept"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))

	// Authorization and the identification header are non-overridable.
	assert.Equal(t, "Bearer test-token", got.Get("Authorization"))
	assert.Equal(t, clientReferer, got.Get("Referer"))
}

func TestDo_PreviewInjection(t *testing.T) {
	var gotQuery string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, WithPreview(true))

	_, err := client.Get(context.Background(), "/v1/thing", Params("rootPath", "dags"))
	require.NoError(t, err)
	assert.Equal(t, "rootPath=dags&preview=true", gotQuery)
}

func TestDo_PreviewNeverClobbersCallerParam(t *testing.T) {
	var gotQuery string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, WithPreview(true))

	_, err := client.Get(context.Background(), "/v1/thing", Params("preview", "false"))
	require.NoError(t, err)
	assert.Equal(t, "preview=false", gotQuery)
}

func TestDo_MultiValueQueryOrderPreserved(t *testing.T) {
	var gotQuery string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.Get(context.Background(), "/v1/thing",
		Params("tag", "b", "zeta", "1", "tag", "a"))
	require.NoError(t, err)
	assert.Equal(t, "tag=b&zeta=1&tag=a", gotQuery)
}

func TestDo_StreamKeepsRawBytes(t *testing.T) {
	payload := []byte{0x00, 0x01, 0xff, 0xfe}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	resp, err := client.Do(context.Background(), RequestSpec{
		Method: http.MethodGet,
		Path:   "/v1/files/x.bin",
		Stream: true,
	})

	require.NoError(t, err)
	assert.Equal(t, payload, resp.Bytes)
	assert.Equal(t, payload, resp.Body())
	assert.Nil(t, resp.JSON)
}

func TestDo_NonJSONContentTypeKeptAsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(`{"looks":"like json"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	resp, err := client.Get(context.Background(), "/v1/thing", nil)

	require.NoError(t, err)
	assert.Nil(t, resp.JSON)
	assert.Equal(t, `{"looks":"like json"}`, resp.Text)
}

func TestDo_BothBodiesRejected(t *testing.T) {
	client := newTestClient(t, "http://unused.invalid")

	_, err := client.Do(context.Background(), RequestSpec{
		Method:   http.MethodPost,
		Path:     "/v1/thing",
		JSONBody: map[string]string{"a": "b"},
		RawBody:  []byte("raw"),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not both")
}

func TestDo_TokenFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, http.DefaultClient, failingToken{}, slog.Default())

	_, err := client.Get(context.Background(), "/v1/thing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "obtaining token")

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "token failures are not API errors")
}

func TestDo_TransportErrorNotClassified(t *testing.T) {
	// Point at a closed server so the dial fails.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.Get(context.Background(), "/v1/thing", nil)
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "transport failures are not remapped into the taxonomy")
}

func TestDo_JSONBodySent(t *testing.T) {
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.Post(context.Background(), "/v1/thing", map[string]string{"displayName": "x"}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"displayName":"x"}`, string(gotBody))
}

func TestErrorMessage_Fallbacks(t *testing.T) {
	assert.Equal(t, "desc", errorMessage(map[string]any{"description": "desc", "message": "msg"}, "", 400))
	assert.Equal(t, "msg", errorMessage(map[string]any{"message": "msg"}, "", 400))
	assert.Equal(t, "err", errorMessage(map[string]any{"error": "err"}, "", 400))
	assert.Equal(t, "nested", errorMessage(map[string]any{"error": map[string]any{"message": "nested"}}, "", 400))
	assert.Equal(t, `{"other":"field"}`, errorMessage(map[string]any{"other": "field"}, "", 400))
	assert.Equal(t, "plain text", errorMessage(nil, "plain text", 400))
	assert.Equal(t, "HTTP 502", errorMessage(nil, "", 502))
}
