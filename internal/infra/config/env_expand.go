package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// expandConfigEnv substitutes $VAR and ${VAR} inside YAML scalars and
// reports which variables were not set. Expansion happens on the parsed
// node tree so substituted values keep working YAML semantics: a quoted
// scalar stays a string, an unquoted one re-types ("true" becomes a bool).
func expandConfigEnv(raw []byte) (string, []string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return "", nil, fmt.Errorf("parse config: %w", err)
	}

	missing := make(map[string]struct{})
	expandYAMLNode(&root, missing)

	expanded, err := yaml.Marshal(&root)
	if err != nil {
		return "", nil, fmt.Errorf("encode expanded config: %w", err)
	}

	var names []string
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return string(expanded), names, nil
}

func expandYAMLNode(node *yaml.Node, missing map[string]struct{}) {
	switch node.Kind {
	case yaml.MappingNode:
		// Expand values only; keys stay literal.
		for i := 0; i+1 < len(node.Content); i += 2 {
			expandYAMLNode(node.Content[i+1], missing)
		}
	case yaml.ScalarNode:
		expandScalarNode(node, missing)
	default:
		for _, child := range node.Content {
			expandYAMLNode(child, missing)
		}
	}
}

func expandScalarNode(node *yaml.Node, missing map[string]struct{}) {
	if node.Tag != "" && node.Tag != "!!str" {
		return
	}
	if !strings.Contains(node.Value, "$") {
		return
	}

	expanded := os.Expand(node.Value, func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		missing[key] = struct{}{}
		return ""
	})
	if expanded == node.Value {
		return
	}

	if node.Style != 0 {
		node.Tag = "!!str"
		node.Value = expanded
		return
	}
	retypeScalar(node, expanded)
}

// retypeScalar lets an unquoted expansion take its natural YAML type, so
// EDGERC_WATCH=true lands as a bool and CACHE_MAX=512 as an int.
func retypeScalar(node *yaml.Node, value string) {
	if strings.TrimSpace(value) == "" {
		node.Tag = "!!str"
		node.Value = value
		return
	}
	var probe yaml.Node
	if err := yaml.Unmarshal([]byte(value), &probe); err != nil || len(probe.Content) == 0 {
		node.Tag = "!!str"
		node.Value = value
		return
	}
	typed := probe.Content[0]
	if typed.Kind != yaml.ScalarNode {
		node.Tag = "!!str"
		node.Value = value
		return
	}
	node.Tag = typed.Tag
	node.Value = typed.Value
}
