package schema

import (
	"strconv"

	"github.com/google/jsonschema-go/jsonschema"
)

// coerceValue rewrites a decoded JSON value toward the declared shape. The
// input is never mutated; containers are rebuilt. Only the conversions below
// exist, so the output is a pure function of (value, schema):
//
//	string  <- number, bool
//	integer <- numeric string with an exact integer parse
//	number  <- numeric string
//	boolean <- "true" / "false"
//
// Anything else passes through untouched and is left to validation.
func coerceValue(value any, s *jsonschema.Schema) any {
	if s == nil || value == nil {
		return value
	}

	switch s.Type {
	case "string":
		return coerceToString(value)
	case "integer":
		return coerceToInteger(value)
	case "number":
		return coerceToNumber(value)
	case "boolean":
		return coerceToBoolean(value)
	case "array":
		items, ok := value.([]any)
		if !ok {
			return value
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = coerceValue(item, s.Items)
		}
		return out
	case "object":
		fields, ok := value.(map[string]any)
		if !ok {
			return value
		}
		out := make(map[string]any, len(fields))
		for key, field := range fields {
			out[key] = coerceValue(field, s.Properties[key])
		}
		return out
	default:
		return value
	}
}

func coerceToString(value any) any {
	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return value
	}
}

func coerceToInteger(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	parsed, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return value
	}
	return float64(parsed)
}

func coerceToNumber(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	parsed, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return value
	}
	return parsed
}

func coerceToBoolean(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	default:
		return value
	}
}
