package toolkit

import (
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
)

// Annotation presets for the behavior hints MCP clients read. Every tool
// should use one so agents know what is safe to call without asking.

// ReadOnly marks tools that query state and never modify it.
func ReadOnly(title string) *domain.ToolAnnotations {
	return &domain.ToolAnnotations{
		Title:          title,
		ReadOnlyHint:   true,
		IdempotentHint: true,
	}
}

// Idempotent marks tools that modify state but converge on repeated calls
// with identical arguments.
func Idempotent(title string) *domain.ToolAnnotations {
	return &domain.ToolAnnotations{
		Title:          title,
		IdempotentHint: true,
	}
}

// Mutating marks tools whose side effects accumulate on repeated calls.
func Mutating(title string) *domain.ToolAnnotations {
	return &domain.ToolAnnotations{Title: title}
}

// Destructive marks tools that irreversibly remove or damage data.
func Destructive(title string) *domain.ToolAnnotations {
	destructive := true
	return &domain.ToolAnnotations{
		Title:           title,
		DestructiveHint: &destructive,
	}
}
