package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// Meta accompanies every response, success or failure.
type Meta struct {
	RequestID  string    `json:"requestId"`
	Tool       string    `json:"tool"`
	Account    string    `json:"account,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"durationMs"`
	CacheHit   bool      `json:"cacheHit,omitempty"`
}

// ErrorBody is the outward-facing error shape. Message is a sanitized single
// line; the cause chain stays in the logs.
type ErrorBody struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Envelope is the uniform response wrapper. Exactly one of Data or Err is
// populated; MarshalJSON enforces that on the wire.
type Envelope struct {
	Data any
	Err  *ErrorBody
	Meta Meta
}

func OK(data any, meta Meta) Envelope {
	return Envelope{Data: data, Meta: meta}
}

func Fail(err *Error, meta Meta) Envelope {
	return Envelope{Err: ErrorBodyFrom(err), Meta: meta}
}

func (e Envelope) Failed() bool {
	return e.Err != nil
}

// Validate checks the exactly-one-of contract. A success with nil Data is
// legal (the handler produced nothing); data and error together are not.
func (e Envelope) Validate() error {
	if e.Err != nil && e.Data != nil {
		return errors.New("envelope carries both data and error")
	}
	if e.Err != nil && e.Err.Code == "" {
		return errors.New("envelope error has no code")
	}
	return nil
}

type successEnvelope struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

type failureEnvelope struct {
	Error *ErrorBody `json:"error"`
	Meta  Meta       `json:"meta"`
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Err != nil {
		return json.Marshal(failureEnvelope{Error: e.Err, Meta: e.Meta})
	}
	return json.Marshal(successEnvelope{Data: e.Data, Meta: e.Meta})
}

func (e *Envelope) UnmarshalJSON(raw []byte) error {
	var wire struct {
		Data  json.RawMessage `json:"data"`
		Error *ErrorBody      `json:"error"`
		Meta  Meta            `json:"meta"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return err
	}
	e.Meta = wire.Meta
	e.Err = wire.Error
	e.Data = nil
	if wire.Error == nil && len(wire.Data) > 0 {
		var data any
		if err := json.Unmarshal(wire.Data, &data); err != nil {
			return err
		}
		e.Data = data
	}
	return nil
}

// ErrorBodyFrom renders a domain error for the envelope. Only the curated
// Message, Violations, and Meta pairs go outward; Cause never does.
func ErrorBodyFrom(err *Error) *ErrorBody {
	if err == nil {
		return &ErrorBody{Code: CodeInternal, Message: "internal error"}
	}
	code := err.Code
	if code == "" {
		code = CodeInternal
	}
	msg := err.Message
	if msg == "" {
		msg = defaultMessage(code)
	}
	body := &ErrorBody{Code: code, Message: msg}
	if len(err.Violations) > 0 || err.Retryable || len(err.Meta) > 0 {
		body.Details = make(map[string]any)
	}
	if len(err.Violations) > 0 {
		violations := make([]FieldViolation, len(err.Violations))
		copy(violations, err.Violations)
		body.Details["violations"] = violations
	}
	if err.Retryable {
		body.Details["retryable"] = true
	}
	for key, value := range err.Meta {
		body.Details[key] = value
	}
	return body
}

func defaultMessage(code ErrorCode) string {
	switch code {
	case CodeToolNotFound:
		return "unknown tool"
	case CodeInvalidParams:
		return "invalid parameters"
	case CodeUnknownAccount:
		return "unknown account"
	case CodeNotFound:
		return "resource not found"
	case CodeConflict:
		return "conflicting state"
	case CodeForbidden:
		return "access denied"
	case CodeRateLimited:
		return "rate limited"
	case CodeTimeout:
		return "request timed out"
	case CodeCanceled:
		return "request canceled"
	case CodeHandlerError:
		return "tool execution failed"
	default:
		return "internal error"
	}
}
