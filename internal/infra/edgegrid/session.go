package edgegrid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/telemetry"
)

const (
	defaultUpstreamTimeout = 60 * time.Second
	maxResponseBytes       = 16 << 20
	maxOutwardMessage      = 256
)

// Session is what tool handlers talk to. Paths are API-relative and may
// carry a query string; in is marshaled as the JSON body (nil for none)
// and out receives the decoded response (nil to discard it).
type Session interface {
	Get(ctx context.Context, path string, in, out any) *domain.Error
	Post(ctx context.Context, path string, in, out any) *domain.Error
	Put(ctx context.Context, path string, in, out any) *domain.Error
	Delete(ctx context.Context, path string, in, out any) *domain.Error
}

// SessionFactory builds a Session bound to one resolved credential set.
// Handlers call it with the invocation's credentials on every request.
type SessionFactory func(creds domain.Credentials) Session

type ClientOptions struct {
	// HTTPClient is shared across sessions; nil gets a client with the
	// default upstream timeout.
	HTTPClient *http.Client
	UserAgent  string
	Logger     *zap.Logger
	Metrics    domain.Metrics
}

// NewSessionFactory returns a factory whose sessions share one HTTP client.
func NewSessionFactory(opts ClientOptions) SessionFactory {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultUpstreamTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("edgegrid")
	metrics := opts.Metrics
	if metrics == nil {
		metrics = domain.NopMetrics{}
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "alecs"
	}
	return func(creds domain.Credentials) Session {
		return &session{
			creds:     creds,
			signer:    NewSigner(creds),
			client:    client,
			userAgent: userAgent,
			logger:    logger,
			metrics:   metrics,
		}
	}
}

type session struct {
	creds     domain.Credentials
	signer    *Signer
	client    *http.Client
	userAgent string
	logger    *zap.Logger
	metrics   domain.Metrics
}

func (s *session) Get(ctx context.Context, path string, in, out any) *domain.Error {
	return s.do(ctx, http.MethodGet, path, in, out)
}

func (s *session) Post(ctx context.Context, path string, in, out any) *domain.Error {
	return s.do(ctx, http.MethodPost, path, in, out)
}

func (s *session) Put(ctx context.Context, path string, in, out any) *domain.Error {
	return s.do(ctx, http.MethodPut, path, in, out)
}

func (s *session) Delete(ctx context.Context, path string, in, out any) *domain.Error {
	return s.do(ctx, http.MethodDelete, path, in, out)
}

func (s *session) do(ctx context.Context, method, path string, in, out any) *domain.Error {
	const op = "edgegrid.Session"

	target, err := s.requestURL(path)
	if err != nil {
		return domain.E(domain.CodeInternal, op, "invalid request path", err)
	}

	var body []byte
	if in != nil {
		body, err = json.Marshal(in)
		if err != nil {
			return domain.E(domain.CodeInternal, op, "request body is not serializable", err)
		}
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return domain.E(domain.CodeInternal, op, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	s.signer.Sign(req, body)

	start := time.Now()
	resp, err := s.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		s.metrics.ObserveUpstream(domain.UpstreamMetric{Method: method, StatusClass: "error", Duration: duration})
		switch code, ok := domain.CodeFrom(err); {
		case ok && code == domain.CodeTimeout:
			return domain.E(code, op, "upstream request timed out", err)
		case ok && code == domain.CodeCanceled:
			return domain.E(code, op, "upstream request canceled", err)
		case ok:
			return domain.E(code, op, "", err)
		}
		s.logger.Warn("upstream request failed",
			zap.String("method", method),
			zap.String("path", req.URL.Path),
			zap.Error(err),
		)
		return &domain.Error{
			Code:      domain.CodeHandlerError,
			Op:        op,
			Message:   "upstream request failed",
			Cause:     err,
			Retryable: true,
		}
	}
	defer resp.Body.Close()

	s.metrics.ObserveUpstream(domain.UpstreamMetric{
		Method:      method,
		StatusClass: statusClass(resp.StatusCode),
		Duration:    duration,
	})
	s.logger.Debug("upstream response",
		zap.String("method", method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		telemetry.DurationField(duration),
	)

	data, err := readLimitedBody(resp.Body, maxResponseBytes)
	if err != nil {
		return domain.E(domain.CodeHandlerError, op, "failed to read upstream response", err)
	}

	if resp.StatusCode >= 400 {
		return classifyStatus(op, resp, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return domain.E(domain.CodeHandlerError, op, "upstream returned malformed JSON", err)
	}
	return nil
}

// requestURL joins the credential host with an API-relative path and adds
// the account switch key when the credentials carry one. The key rides on
// the URL before signing so it is covered by the signature.
func (s *session) requestURL(path string) (string, error) {
	if s.creds.Host == "" {
		return "", fmt.Errorf("credentials have no host")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	base, err := url.Parse("https://" + s.creds.Host)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	full := base.ResolveReference(ref)
	if s.creds.AccountKey != "" {
		q := full.Query()
		q.Set("accountSwitchKey", s.creds.AccountKey)
		full.RawQuery = q.Encode()
	}
	return full.String(), nil
}

// problemDetails is the RFC 7807 shape Akamai APIs return on failure.
// Nested errors show up on PAPI validation responses.
type problemDetails struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// classifyStatus maps an upstream failure status into the error taxonomy.
// The outward message comes from the problem document's title or detail;
// the raw body never leaves the process.
func classifyStatus(op string, resp *http.Response, data []byte) *domain.Error {
	var problem problemDetails
	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		_ = json.Unmarshal(data, &problem)
	}

	msg := strings.TrimSpace(problem.Title)
	if msg == "" {
		msg = strings.TrimSpace(problem.Detail)
	}
	if msg == "" && len(problem.Errors) > 0 {
		msg = strings.TrimSpace(problem.Errors[0].Title)
	}
	if msg == "" {
		msg = fmt.Sprintf("upstream returned %s", http.StatusText(resp.StatusCode))
	}
	msg = telemetry.TruncateString(msg, maxOutwardMessage)

	derr := &domain.Error{
		Op:      op,
		Message: msg,
		Meta:    map[string]string{"status": fmt.Sprintf("%d", resp.StatusCode)},
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		derr.Code = domain.CodeForbidden
	case resp.StatusCode == http.StatusNotFound:
		derr.Code = domain.CodeNotFound
	case resp.StatusCode == http.StatusConflict:
		derr.Code = domain.CodeConflict
	case resp.StatusCode == http.StatusTooManyRequests:
		derr.Code = domain.CodeRateLimited
		derr.Retryable = true
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			derr.Meta["retryAfter"] = retryAfter
		}
	case resp.StatusCode >= 500:
		derr.Code = domain.CodeHandlerError
		derr.Retryable = true
	default:
		derr.Code = domain.CodeHandlerError
	}
	return derr
}

func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}

func readLimitedBody(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("response exceeds %d bytes", limit)
	}
	return data, nil
}
