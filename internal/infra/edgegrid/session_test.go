package edgegrid

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
)

type upstreamRecorder struct {
	mu      sync.Mutex
	metrics []domain.UpstreamMetric
}

func (r *upstreamRecorder) ObserveRequest(domain.RequestMetric)  {}
func (r *upstreamRecorder) ObserveCacheEvent(domain.CacheEvent)  {}
func (r *upstreamRecorder) AddInflight(int)                      {}
func (r *upstreamRecorder) ObserveUpstream(m domain.UpstreamMetric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, m)
}

func (r *upstreamRecorder) classes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.metrics))
	for _, m := range r.metrics {
		out = append(out, m.StatusClass)
	}
	return out
}

type capturedRequest struct {
	mu     sync.Mutex
	method string
	path   string
	query  map[string]string
	header http.Header
	body   []byte
}

func (c *capturedRequest) record(r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.method = r.Method
	c.path = r.URL.Path
	c.query = map[string]string{}
	for key := range r.URL.Query() {
		c.query[key] = r.URL.Query().Get(key)
	}
	c.header = r.Header.Clone()
	c.body = body
}

func (c *capturedRequest) snapshot() capturedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return capturedRequest{
		method: c.method,
		path:   c.path,
		query:  c.query,
		header: c.header,
		body:   c.body,
	}
}

func newTestSession(t *testing.T, creds domain.Credentials, handler http.HandlerFunc) (Session, *upstreamRecorder) {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)
	creds.Host = strings.TrimPrefix(srv.URL, "https://")
	recorder := &upstreamRecorder{}
	factory := NewSessionFactory(ClientOptions{
		HTTPClient: srv.Client(),
		UserAgent:  "alecs-test",
		Metrics:    recorder,
	})
	return factory(creds), recorder
}

func baseCreds() domain.Credentials {
	return domain.Credentials{
		ClientToken:  "akab-client-token-abc",
		ClientSecret: "topsecret==",
		AccessToken:  "akab-access-token-xyz",
	}
}

func TestSession_GetDecodesResponse(t *testing.T) {
	captured := &capturedRequest{}
	sess, recorder := newTestSession(t, baseCreds(), func(w http.ResponseWriter, r *http.Request) {
		captured.record(r)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"properties":{"items":[{"propertyId":"prp_1"}]}}`)
	})

	var out map[string]any
	derr := sess.Get(context.Background(), "/papi/v1/properties?contractId=ctr_1", nil, &out)

	require.Nil(t, derr)
	require.Contains(t, out, "properties")

	req := captured.snapshot()
	require.Equal(t, http.MethodGet, req.method)
	require.Equal(t, "/papi/v1/properties", req.path)
	require.Equal(t, "ctr_1", req.query["contractId"])
	require.True(t, strings.HasPrefix(req.header.Get("Authorization"), "EG1-HMAC-SHA256 "))
	require.Contains(t, req.header.Get("Authorization"), "signature=")
	require.Equal(t, "alecs-test", req.header.Get("User-Agent"))
	require.Equal(t, "application/json", req.header.Get("Accept"))

	require.Equal(t, []string{"2xx"}, recorder.classes())
}

func TestSession_AccountSwitchKeyRidesQuery(t *testing.T) {
	captured := &capturedRequest{}
	creds := baseCreds()
	creds.AccountKey = "1-ABCDEF:1-2QRST"
	sess, _ := newTestSession(t, creds, func(w http.ResponseWriter, r *http.Request) {
		captured.record(r)
		w.WriteHeader(http.StatusNoContent)
	})

	derr := sess.Get(context.Background(), "/papi/v1/contracts", nil, nil)
	require.Nil(t, derr)
	require.Equal(t, "1-ABCDEF:1-2QRST", captured.snapshot().query["accountSwitchKey"])
}

func TestSession_NoAccountSwitchKeyWithoutAccountKey(t *testing.T) {
	captured := &capturedRequest{}
	sess, _ := newTestSession(t, baseCreds(), func(w http.ResponseWriter, r *http.Request) {
		captured.record(r)
		w.WriteHeader(http.StatusNoContent)
	})

	derr := sess.Get(context.Background(), "/papi/v1/contracts", nil, nil)
	require.Nil(t, derr)
	_, present := captured.snapshot().query["accountSwitchKey"]
	require.False(t, present)
}

func TestSession_PostSendsJSONBody(t *testing.T) {
	captured := &capturedRequest{}
	sess, _ := newTestSession(t, baseCreds(), func(w http.ResponseWriter, r *http.Request) {
		captured.record(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"purgeId":"pg_1","estimatedSeconds":5}`)
	})

	in := map[string]any{"objects": []string{"https://www.example.com/a.css"}}
	var out map[string]any
	derr := sess.Post(context.Background(), "/ccu/v3/invalidate/url/production", in, &out)

	require.Nil(t, derr)
	require.Equal(t, "pg_1", out["purgeId"])

	req := captured.snapshot()
	require.Equal(t, "application/json", req.header.Get("Content-Type"))
	var sent map[string]any
	require.NoError(t, json.Unmarshal(req.body, &sent))
	require.Equal(t, []any{"https://www.example.com/a.css"}, sent["objects"])
}

func TestSession_StatusClassification(t *testing.T) {
	cases := []struct {
		name          string
		status        int
		body          string
		retryAfter    string
		wantCode      domain.ErrorCode
		wantRetryable bool
		wantMessage   string
	}{
		{
			name:        "unauthorized",
			status:      http.StatusUnauthorized,
			body:        `{"title":"Invalid authorization"}`,
			wantCode:    domain.CodeForbidden,
			wantMessage: "Invalid authorization",
		},
		{
			name:        "forbidden",
			status:      http.StatusForbidden,
			body:        `{"title":"Access denied for account switch key"}`,
			wantCode:    domain.CodeForbidden,
			wantMessage: "Access denied for account switch key",
		},
		{
			name:        "not found",
			status:      http.StatusNotFound,
			body:        `{"title":"Property not found","detail":"prp_404 does not exist"}`,
			wantCode:    domain.CodeNotFound,
			wantMessage: "Property not found",
		},
		{
			name:        "conflict",
			status:      http.StatusConflict,
			body:        `{"detail":"a newer version exists"}`,
			wantCode:    domain.CodeConflict,
			wantMessage: "a newer version exists",
		},
		{
			name:          "rate limited",
			status:        http.StatusTooManyRequests,
			body:          `{"title":"Rate limit exceeded"}`,
			retryAfter:    "30",
			wantCode:      domain.CodeRateLimited,
			wantRetryable: true,
			wantMessage:   "Rate limit exceeded",
		},
		{
			name:          "server error",
			status:        http.StatusBadGateway,
			body:          `{"title":"Origin unreachable"}`,
			wantCode:      domain.CodeHandlerError,
			wantRetryable: true,
			wantMessage:   "Origin unreachable",
		},
		{
			name:        "bad request",
			status:      http.StatusBadRequest,
			body:        `{"errors":[{"title":"Invalid contract"}]}`,
			wantCode:    domain.CodeHandlerError,
			wantMessage: "Invalid contract",
		},
		{
			name:        "empty body falls back to status text",
			status:      http.StatusNotFound,
			body:        "",
			wantCode:    domain.CodeNotFound,
			wantMessage: "upstream returned Not Found",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess, _ := newTestSession(t, baseCreds(), func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/problem+json")
				if tc.retryAfter != "" {
					w.Header().Set("Retry-After", tc.retryAfter)
				}
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			})

			derr := sess.Get(context.Background(), "/papi/v1/properties/prp_404", nil, nil)

			require.NotNil(t, derr)
			require.Equal(t, tc.wantCode, derr.Code)
			require.Equal(t, tc.wantRetryable, derr.Retryable)
			require.Equal(t, tc.wantMessage, derr.Message)
			require.NotContains(t, derr.Message, "topsecret")
			if tc.retryAfter != "" {
				require.Equal(t, tc.retryAfter, derr.Meta["retryAfter"])
			}
		})
	}
}

func TestSession_MalformedSuccessBody(t *testing.T) {
	sess, _ := newTestSession(t, baseCreds(), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"items": [`)
	})

	var out map[string]any
	derr := sess.Get(context.Background(), "/papi/v1/properties", nil, &out)

	require.NotNil(t, derr)
	require.Equal(t, domain.CodeHandlerError, derr.Code)
}

func TestSession_NoContentLeavesOutUntouched(t *testing.T) {
	sess, _ := newTestSession(t, baseCreds(), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	var out map[string]any
	derr := sess.Delete(context.Background(), "/config-dns/v2/zones/example.com/names/a.example.com/types/A", nil, &out)

	require.Nil(t, derr)
	require.Nil(t, out)
}

func TestSession_DeadlineMapsToTimeout(t *testing.T) {
	sess, recorder := newTestSession(t, baseCreds(), func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	derr := sess.Get(ctx, "/papi/v1/properties", nil, nil)

	require.NotNil(t, derr)
	require.Equal(t, domain.CodeTimeout, derr.Code)
	require.Equal(t, "upstream request timed out", derr.Message)
	require.Equal(t, []string{"error"}, recorder.classes())
}

func TestSession_UpstreamMetricsPerCall(t *testing.T) {
	var status int
	var mu sync.Mutex
	sess, recorder := newTestSession(t, baseCreds(), func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		code := status
		mu.Unlock()
		w.WriteHeader(code)
	})

	mu.Lock()
	status = http.StatusOK
	mu.Unlock()
	require.Nil(t, sess.Get(context.Background(), "/papi/v1/contracts", nil, nil))

	mu.Lock()
	status = http.StatusInternalServerError
	mu.Unlock()
	require.NotNil(t, sess.Get(context.Background(), "/papi/v1/contracts", nil, nil))

	require.Equal(t, []string{"2xx", "5xx"}, recorder.classes())
}

func TestSession_RelativePathGetsLeadingSlash(t *testing.T) {
	captured := &capturedRequest{}
	sess, _ := newTestSession(t, baseCreds(), func(w http.ResponseWriter, r *http.Request) {
		captured.record(r)
		w.WriteHeader(http.StatusNoContent)
	})

	require.Nil(t, sess.Get(context.Background(), "papi/v1/groups", nil, nil))
	require.Equal(t, "/papi/v1/groups", captured.snapshot().path)
}
