// Package pipeline runs one tool request through lookup, validation,
// account resolution, cache, and dispatch, and always terminates in an
// envelope. Nothing downstream of a transport sees a raw error or a panic.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/cache"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/telemetry"
)

// State names one stage of a request's life.
type State string

const (
	StateReceived        State = "received"
	StateLookedUp        State = "looked_up"
	StateValidated       State = "validated"
	StateAccountResolved State = "account_resolved"
	StateCacheHit        State = "cache_hit"
	StateInvoking        State = "invoking"
	StateCompleted       State = "completed"
	StateFailed          State = "failed"
)

// Request is one tool invocation as received from a transport.
type Request struct {
	Tool      string
	RawArgs   json.RawMessage
	Account   string
	RequestID string
}

type ToolSource interface {
	Get(name string) (domain.ToolDefinition, bool)
}

type ArgumentValidator interface {
	Validate(def domain.ToolDefinition, raw json.RawMessage) (map[string]any, *domain.Error)
}

type CredentialSource interface {
	Resolve(ctx context.Context, account string) (domain.Credentials, *domain.Error)
}

type ExecutorOptions struct {
	Tools       ToolSource
	Validator   ArgumentValidator
	Credentials CredentialSource

	// Cache is optional; nil disables lookups, stores, and invalidation.
	Cache cache.Store

	DefaultTimeout  time.Duration
	DefaultCacheTTL time.Duration
	Logger          *zap.Logger
	Metrics         domain.Metrics
}

type Executor struct {
	tools       ToolSource
	validator   ArgumentValidator
	credentials CredentialSource
	cache       cache.Store

	defaultTimeout  time.Duration
	defaultCacheTTL time.Duration
	logger          *zap.Logger
	metrics         domain.Metrics
}

func NewExecutor(opts ExecutorOptions) (*Executor, error) {
	if opts.Tools == nil {
		return nil, fmt.Errorf("pipeline: tool source is required")
	}
	if opts.Validator == nil {
		return nil, fmt.Errorf("pipeline: validator is required")
	}
	if opts.Credentials == nil {
		return nil, fmt.Errorf("pipeline: credential source is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = domain.NopMetrics{}
	}
	defaultTimeout := opts.DefaultTimeout
	if defaultTimeout <= 0 {
		defaultTimeout = domain.DefaultRequestTimeout
	}
	defaultCacheTTL := opts.DefaultCacheTTL
	if defaultCacheTTL <= 0 {
		defaultCacheTTL = domain.DefaultCacheTTL
	}
	return &Executor{
		tools:           opts.Tools,
		validator:       opts.Validator,
		credentials:     opts.Credentials,
		cache:           opts.Cache,
		defaultTimeout:  defaultTimeout,
		defaultCacheTTL: defaultCacheTTL,
		logger:          logger.Named("pipeline"),
		metrics:         metrics,
	}, nil
}

type requestInfo struct {
	tool      string
	domain    string
	account   string
	requestID string
	start     time.Time
}

type outcome struct {
	value any
	err   error
}

// Execute runs one request to its terminal envelope. Stage order is fixed:
// an earlier failure short-circuits everything after it, so invalid params
// never reach the resolver and unknown accounts never read the cache.
func (e *Executor) Execute(ctx context.Context, req Request) domain.Envelope {
	start := time.Now()
	account := normalizeAccount(req.Account)
	ctx, meta := telemetry.EnsureRequestMeta(ctx, req.RequestID, req.Tool, account)
	logger := telemetry.LoggerWithRequest(ctx, e.logger)

	info := requestInfo{
		tool:      req.Tool,
		domain:    domain.ToolDefinition{Name: req.Tool}.EffectiveDomain(),
		account:   account,
		requestID: meta.RequestID,
		start:     start,
	}
	logger.Debug("request received", stateField(StateReceived))

	def, ok := e.tools.Get(req.Tool)
	if !ok {
		return e.fail(logger, info, domain.E(domain.CodeToolNotFound, "pipeline.Execute",
			fmt.Sprintf("no tool named %q", req.Tool), domain.ErrToolNotFound))
	}
	info.domain = def.EffectiveDomain()
	logger.Debug("tool resolved", stateField(StateLookedUp), telemetry.DomainField(info.domain))

	args, verr := e.validator.Validate(def, req.RawArgs)
	if verr != nil {
		return e.fail(logger, info, verr)
	}
	logger.Debug("arguments validated", stateField(StateValidated))

	creds, cerr := e.credentials.Resolve(ctx, account)
	if cerr != nil {
		return e.fail(logger, info, cerr)
	}
	logger.Debug("account resolved", stateField(StateAccountResolved))

	cacheKey := e.cacheKey(logger, def, account, args)
	if cacheKey != "" {
		if value, hit := e.cache.Get(cacheKey); hit {
			logger.Debug("served from cache", stateField(StateCacheHit), telemetry.CacheKeyField(cacheKey))
			return e.complete(logger, info, value, true)
		}
	}

	inv := &domain.Invocation{
		Tool:        def.Name,
		Domain:      info.domain,
		Account:     account,
		Credentials: creds,
		Args:        args,
		RequestID:   meta.RequestID,
	}
	value, derr := e.invoke(ctx, logger, def, inv)
	if derr != nil {
		return e.fail(logger, info, derr)
	}

	if cacheKey != "" && value != nil {
		e.cache.Set(cacheKey, value, e.ttlFor(def))
	}
	e.invalidate(logger, def, account)

	return e.complete(logger, info, value, false)
}

// invoke dispatches the handler exactly once and races it against the
// request deadline. A loser that finishes later is drained by a watcher
// goroutine so its completion is still visible in the logs.
func (e *Executor) invoke(ctx context.Context, logger *zap.Logger, def domain.ToolDefinition, inv *domain.Invocation) (any, *domain.Error) {
	timeout := def.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	invokeCtx, cancel := context.WithTimeout(ctx, timeout)

	logger.Debug("invoking handler", stateField(StateInvoking), zap.Duration("timeout", timeout))
	e.metrics.AddInflight(1)
	defer e.metrics.AddInflight(-1)

	results := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("handler panicked",
					telemetry.EventField(telemetry.EventPanicRecovered),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				results <- outcome{err: domain.E(domain.CodeHandlerError, "pipeline.invoke", "tool handler panicked", nil)}
			}
		}()
		value, err := def.Handler(invokeCtx, inv)
		results <- outcome{value: value, err: err}
	}()

	select {
	case out := <-results:
		cancel()
		if out.err != nil {
			return nil, e.classify(out.err)
		}
		return out.value, nil
	case <-invokeCtx.Done():
		cancel()
		code := domain.CodeTimeout
		msg := fmt.Sprintf("handler exceeded the %s deadline", timeout)
		if cause := ctx.Err(); cause != nil && !errors.Is(cause, context.DeadlineExceeded) {
			code = domain.CodeCanceled
			msg = "request canceled by client"
		}
		go e.watchLateCompletion(logger, results, timeout)
		return nil, domain.E(code, "pipeline.invoke", msg, invokeCtx.Err())
	}
}

// classify maps a handler error into the closed taxonomy: typed errors keep
// their code, known sentinels map through CodeFrom, everything else is a
// handler error with a sanitized outward message.
func (e *Executor) classify(err error) *domain.Error {
	var derr *domain.Error
	if errors.As(err, &derr) && derr.Code != "" {
		return domain.Wrap(derr.Code, "pipeline.invoke", err)
	}
	if code, ok := domain.CodeFrom(err); ok {
		return domain.E(code, "pipeline.invoke", "", err)
	}
	return domain.E(domain.CodeHandlerError, "pipeline.invoke", "tool execution failed", err)
}

func (e *Executor) watchLateCompletion(logger *zap.Logger, results <-chan outcome, timeout time.Duration) {
	abandoned := time.Now()
	out := <-results
	fields := []zap.Field{
		telemetry.EventField(telemetry.EventLateCompletion),
		zap.Duration("timeout", timeout),
		zap.Duration("overrun", time.Since(abandoned)),
	}
	if out.err != nil {
		fields = append(fields, zap.Error(out.err))
	}
	logger.Warn("handler finished after abandonment", fields...)
}

// cacheKey returns "" whenever this request cannot use the cache.
func (e *Executor) cacheKey(logger *zap.Logger, def domain.ToolDefinition, account string, args map[string]any) string {
	if e.cache == nil || !def.Cacheable {
		return ""
	}
	fingerprint, err := domain.Fingerprint(args)
	if err != nil {
		logger.Debug("fingerprint failed, skipping cache", zap.Error(err))
		return ""
	}
	scope := account
	if def.EffectiveScope() == domain.ScopeGlobal {
		scope = domain.GlobalScopeKey
	}
	return cache.Key(def.EffectiveDomain(), def.Name, scope, fingerprint)
}

func (e *Executor) ttlFor(def domain.ToolDefinition) time.Duration {
	if def.CacheTTL > 0 {
		return def.CacheTTL
	}
	return e.defaultCacheTTL
}

func (e *Executor) invalidate(logger *zap.Logger, def domain.ToolDefinition, account string) {
	if e.cache == nil || len(def.InvalidatePatterns) == 0 {
		return
	}
	for _, pattern := range def.InvalidatePatterns {
		expanded := ExpandPattern(pattern, account)
		removed, err := e.cache.Invalidate(expanded)
		if err != nil {
			logger.Warn("cache invalidation failed", telemetry.PatternField(expanded), zap.Error(err))
			continue
		}
		if removed > 0 {
			logger.Debug("cache entries invalidated",
				telemetry.EventField(telemetry.EventCacheInvalidated),
				telemetry.PatternField(expanded),
				zap.Int("removed", removed),
			)
		}
	}
}

// ExpandPattern scopes a declared invalidation pattern to the invoking
// account. One- and two-segment forms ("property", "dns:dns_record_list")
// gain the account scope and a fingerprint wildcard; longer forms pass
// through verbatim for tools that need explicit scope control.
func ExpandPattern(pattern, account string) string {
	parts := strings.Split(pattern, ":")
	switch len(parts) {
	case 1:
		return parts[0] + ":*:" + account + ":*"
	case 2:
		return parts[0] + ":" + parts[1] + ":" + account + ":*"
	default:
		return pattern
	}
}

func (e *Executor) complete(logger *zap.Logger, info requestInfo, value any, cacheHit bool) domain.Envelope {
	duration := time.Since(info.start)
	e.metrics.ObserveRequest(domain.RequestMetric{
		Tool:     info.tool,
		Domain:   info.domain,
		Duration: duration,
		CacheHit: cacheHit,
	})
	logger.Debug("request completed",
		telemetry.EventField(telemetry.EventRequestCompleted),
		stateField(StateCompleted),
		telemetry.DurationField(duration),
		zap.Bool("cache_hit", cacheHit),
	)
	return domain.OK(value, buildMeta(info, duration, cacheHit))
}

func (e *Executor) fail(logger *zap.Logger, info requestInfo, derr *domain.Error) domain.Envelope {
	duration := time.Since(info.start)
	e.metrics.ObserveRequest(domain.RequestMetric{
		Tool:     info.tool,
		Domain:   info.domain,
		Code:     derr.Code,
		Duration: duration,
	})
	fields := []zap.Field{
		telemetry.EventField(telemetry.EventRequestFailed),
		stateField(StateFailed),
		telemetry.CodeField(string(derr.Code)),
		telemetry.DurationField(duration),
		zap.Error(derr),
	}
	if severe(derr.Code) {
		logger.Error("request failed", fields...)
	} else {
		logger.Warn("request failed", fields...)
	}
	return domain.Fail(derr, buildMeta(info, duration, false))
}

func severe(code domain.ErrorCode) bool {
	return code == domain.CodeHandlerError || code == domain.CodeInternal
}

func buildMeta(info requestInfo, duration time.Duration, cacheHit bool) domain.Meta {
	return domain.Meta{
		RequestID:  info.requestID,
		Tool:       info.tool,
		Account:    info.account,
		Timestamp:  time.Now().UTC(),
		DurationMs: duration.Milliseconds(),
		CacheHit:   cacheHit,
	}
}

func normalizeAccount(account string) string {
	account = strings.ToLower(strings.TrimSpace(account))
	if account == "" {
		return domain.DefaultAccount
	}
	return account
}

func stateField(state State) zap.Field {
	return zap.String("state", string(state))
}
