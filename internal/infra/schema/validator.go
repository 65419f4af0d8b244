package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
)

// Validator checks tool arguments against their declared schemas. Schemas are
// resolved once per tool and reused; Validate never mutates the raw input and
// always returns either a coerced parameter map or an INVALID_PARAMS error
// with field-level violations.
type Validator struct {
	logger *zap.Logger

	mu       sync.RWMutex
	compiled map[string]*compiledSchema
}

type compiledSchema struct {
	schema   *jsonschema.Schema
	resolved *jsonschema.Resolved
}

func NewValidator(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		logger:   logger.Named("schema"),
		compiled: make(map[string]*compiledSchema),
	}
}

// Compile resolves a tool's schema eagerly so authoring mistakes surface at
// registration time rather than on the first request.
func (v *Validator) Compile(def domain.ToolDefinition) error {
	_, err := v.ensure(def)
	return err
}

// CompileAll resolves every definition and reports all failures at once.
func (v *Validator) CompileAll(defs []domain.ToolDefinition) error {
	var problems []string
	for _, def := range defs {
		if err := v.Compile(def); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", def.Name, err))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("schema compile: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Validate decodes, coerces, and validates arguments for one tool. The
// returned map is a fresh copy; callers may hand it to handlers directly.
func (v *Validator) Validate(def domain.ToolDefinition, raw json.RawMessage) (map[string]any, *domain.Error) {
	compiled, err := v.ensure(def)
	if err != nil {
		return nil, domain.E(domain.CodeInternal, "schema.validate", "tool schema does not resolve", err)
	}

	params, decodeErr := decodeArguments(raw)
	if decodeErr != nil {
		return nil, &domain.Error{
			Code:       domain.CodeInvalidParams,
			Op:         "schema.validate",
			Message:    "arguments are not a JSON object",
			Cause:      decodeErr,
			Violations: []domain.FieldViolation{{Path: "", Message: decodeErr.Error()}},
		}
	}

	coerced := coerceValue(params, compiled.schema)
	coercedMap, ok := coerced.(map[string]any)
	if !ok {
		coercedMap = params
	}

	violations := shapeViolations("", coercedMap, compiled.schema)
	if len(violations) == 0 {
		if err := compiled.resolved.Validate(any(coercedMap)); err != nil {
			violations = append(violations, domain.FieldViolation{Path: "", Message: err.Error()})
		}
	}
	if len(violations) > 0 {
		return nil, &domain.Error{
			Code:       domain.CodeInvalidParams,
			Op:         "schema.validate",
			Message:    fmt.Sprintf("arguments for %s failed validation", def.Name),
			Violations: violations,
		}
	}

	return coercedMap, nil
}

func (v *Validator) ensure(def domain.ToolDefinition) (*compiledSchema, error) {
	v.mu.RLock()
	entry, ok := v.compiled[def.Name]
	v.mu.RUnlock()
	if ok {
		return entry, nil
	}

	if def.InputSchema == nil {
		return nil, fmt.Errorf("tool %s has no input schema", def.Name)
	}
	resolved, err := def.InputSchema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve schema for %s: %w", def.Name, err)
	}

	entry = &compiledSchema{schema: def.InputSchema, resolved: resolved}
	v.mu.Lock()
	if existing, ok := v.compiled[def.Name]; ok {
		entry = existing
	} else {
		v.compiled[def.Name] = entry
	}
	v.mu.Unlock()
	return entry, nil
}

// decodeArguments normalizes the raw argument payload into a parameter map.
// Absent and null arguments both mean "no parameters".
func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]any{}, nil
	}

	var params map[string]any
	if err := json.Unmarshal(trimmed, &params); err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}

// shapeViolations walks the declared shape and collects every structural
// violation: missing required properties, type mismatches, enum misses, and
// unexpected properties on closed objects.
func shapeViolations(path string, value map[string]any, s *jsonschema.Schema) []domain.FieldViolation {
	if s == nil {
		return nil
	}
	var violations []domain.FieldViolation

	for _, required := range s.Required {
		if _, present := value[required]; !present {
			violations = append(violations, domain.FieldViolation{
				Path:    path + "/" + required,
				Message: "required property is missing",
			})
		}
	}

	if len(s.Properties) > 0 {
		for key := range value {
			if _, declared := s.Properties[key]; !declared {
				violations = append(violations, domain.FieldViolation{
					Path:    path + "/" + key,
					Message: "unexpected property",
				})
			}
		}
	}

	for key, sub := range s.Properties {
		field, present := value[key]
		if !present {
			continue
		}
		violations = append(violations, valueViolations(path+"/"+key, field, sub)...)
	}

	return violations
}

func valueViolations(path string, value any, s *jsonschema.Schema) []domain.FieldViolation {
	if s == nil {
		return nil
	}
	var violations []domain.FieldViolation

	if s.Type != "" && !matchesType(value, s.Type) {
		return []domain.FieldViolation{{
			Path:    path,
			Message: fmt.Sprintf("expected %s", s.Type),
		}}
	}

	if len(s.Enum) > 0 && !matchesEnum(value, s.Enum) {
		violations = append(violations, domain.FieldViolation{
			Path:    path,
			Message: fmt.Sprintf("must be one of %s", enumList(s.Enum)),
		})
	}

	switch s.Type {
	case "object":
		if fields, ok := value.(map[string]any); ok {
			violations = append(violations, shapeViolations(path, fields, s)...)
		}
	case "array":
		if items, ok := value.([]any); ok && s.Items != nil {
			for i, item := range items {
				violations = append(violations, valueViolations(path+"/"+strconv.Itoa(i), item, s.Items)...)
			}
		}
	}

	return violations
}

func matchesType(value any, typ string) bool {
	switch typ {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "null":
		return value == nil
	case "number":
		return isNumeric(value)
	case "integer":
		return isInteger(value)
	default:
		return true
	}
}

func isNumeric(value any) bool {
	switch value.(type) {
	case float64, int64, int:
		return true
	default:
		return false
	}
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int64:
		return true
	case float64:
		return v == float64(int64(v))
	default:
		return false
	}
}

func matchesEnum(value any, enum []any) bool {
	for _, candidate := range enum {
		if enumEqual(value, candidate) {
			return true
		}
	}
	return false
}

func enumEqual(value, candidate any) bool {
	if value == candidate {
		return true
	}
	return fmt.Sprintf("%v", value) == fmt.Sprintf("%v", candidate)
}

func enumList(enum []any) string {
	parts := make([]string, 0, len(enum))
	for _, candidate := range enum {
		parts = append(parts, fmt.Sprintf("%v", candidate))
	}
	return strings.Join(parts, ", ")
}
