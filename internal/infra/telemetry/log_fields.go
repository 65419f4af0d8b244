package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent      = "event"
	FieldTool       = "tool"
	FieldDomain     = "domain"
	FieldAccount    = "account"
	FieldCode       = "code"
	FieldDurationMs = "duration_ms"
	FieldCacheKey   = "cache_key"
	FieldPattern    = "pattern"
	FieldTransport  = "transport"
	FieldRequestID  = "request_id"
	FieldTraceID    = "trace_id"
	FieldSpanID     = "span_id"
)

const (
	EventRequestCompleted = "request_completed"
	EventRequestFailed    = "request_failed"
	EventLateCompletion   = "late_completion"
	EventPanicRecovered   = "panic_recovered"
	EventCacheInvalidated = "cache_invalidated"
	EventConfigReloaded   = "config_reloaded"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func ToolField(tool string) zap.Field {
	return zap.String(FieldTool, tool)
}

func DomainField(domain string) zap.Field {
	return zap.String(FieldDomain, domain)
}

func AccountField(account string) zap.Field {
	return zap.String(FieldAccount, account)
}

func CodeField(code string) zap.Field {
	return zap.String(FieldCode, code)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

func CacheKeyField(key string) zap.Field {
	return zap.String(FieldCacheKey, key)
}

func PatternField(pattern string) zap.Field {
	return zap.String(FieldPattern, pattern)
}

func TransportField(transport string) zap.Field {
	return zap.String(FieldTransport, transport)
}

func RequestIDField(value string) zap.Field {
	return zap.String(FieldRequestID, value)
}

func TraceIDField(value string) zap.Field {
	return zap.String(FieldTraceID, value)
}

func SpanIDField(value string) zap.Field {
	return zap.String(FieldSpanID, value)
}
