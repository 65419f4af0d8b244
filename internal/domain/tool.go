package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// CacheScope controls which cache partition a tool's results land in.
type CacheScope string

const (
	// ScopeAccount: results are keyed by the resolved account section and are
	// never visible to other accounts. This is the only legal scope for data
	// derived from customer state.
	ScopeAccount CacheScope = "account"

	// ScopeGlobal: results are shared across accounts. Reserved for static
	// reference catalogs that carry no tenant data.
	ScopeGlobal CacheScope = "global"
)

// Handler executes one tool invocation. A nil result with a nil error is a
// valid outcome ("nothing yet") and is never cached.
type Handler func(ctx context.Context, inv *Invocation) (any, error)

// Invocation carries everything a handler needs for one request. Args is the
// validated, coerced parameter set; Credentials belong to the resolved account.
type Invocation struct {
	Tool        string
	Domain      string
	Account     string
	Credentials Credentials
	Args        map[string]any
	RequestID   string
}

// ToolAnnotations mirrors the behavior hints surfaced to MCP clients.
type ToolAnnotations struct {
	Title           string
	ReadOnlyHint    bool
	IdempotentHint  bool
	DestructiveHint *bool
}

type ToolDefinition struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Handler     Handler

	// Domain groups tools for cache keys and metrics. Derived from the name
	// prefix when empty.
	Domain string

	Cacheable  bool
	CacheTTL   time.Duration
	CacheScope CacheScope

	// InvalidatePatterns are cache key globs removed after this tool mutates
	// state successfully.
	InvalidatePatterns []string

	Annotations *ToolAnnotations
	Timeout     time.Duration
	Deprecated  string
}

// EffectiveDomain returns the explicit domain or the segment before the first
// underscore of the tool name.
func (d ToolDefinition) EffectiveDomain() string {
	if d.Domain != "" {
		return d.Domain
	}
	if idx := strings.IndexByte(d.Name, '_'); idx > 0 {
		return d.Name[:idx]
	}
	return d.Name
}

// EffectiveScope defaults to account scope; global must be opted into.
func (d ToolDefinition) EffectiveScope() CacheScope {
	if d.CacheScope == ScopeGlobal {
		return ScopeGlobal
	}
	return ScopeAccount
}

// Validate reports structural problems that make a definition unregistrable.
func (d ToolDefinition) Validate() []string {
	var problems []string
	if strings.TrimSpace(d.Name) == "" {
		problems = append(problems, "name is required")
	}
	if d.Handler == nil {
		problems = append(problems, "handler is required")
	}
	if d.InputSchema == nil {
		problems = append(problems, "input schema is required")
	}
	if d.CacheScope != "" && d.CacheScope != ScopeAccount && d.CacheScope != ScopeGlobal {
		problems = append(problems, "cacheScope must be account or global")
	}
	if !d.Cacheable && d.CacheTTL > 0 {
		problems = append(problems, "cacheTTL requires cacheable")
	}
	if d.CacheScope == ScopeGlobal && !d.Cacheable {
		problems = append(problems, "global cacheScope requires cacheable")
	}
	return problems
}
