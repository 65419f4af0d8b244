// Package toolkit carries the pieces every tool module shares: input
// schema builders, annotation presets, and the argument decoder.
package toolkit

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// Object builds a tool input schema. The account selector is declared on
// every tool so callers can pick the .edgerc section per request; the
// validator rejects undeclared properties, so everything a tool accepts
// must be listed here.
func Object(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	all := make(map[string]*jsonschema.Schema, len(props)+1)
	for name, prop := range props {
		all[name] = prop
	}
	all["account"] = &jsonschema.Schema{
		Type:        "string",
		Description: "Optional .edgerc section to run this call under. Defaults to the default section.",
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: all,
		Required:   required,
	}
}

func String(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func StringEnum(desc string, values ...string) *jsonschema.Schema {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return &jsonschema.Schema{Type: "string", Description: desc, Enum: enum}
}

func Integer(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: desc}
}

func Boolean(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: desc}
}

func StringArray(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: desc,
		Items:       &jsonschema.Schema{Type: "string"},
	}
}

func IntegerArray(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: desc,
		Items:       &jsonschema.Schema{Type: "integer"},
	}
}
