package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/registry"
)

// The overrides file lets operators retune tools without a rebuild:
//
//	[tools.property_list]
//	cache_ttl = "10m"
//
//	[tools.purge_url]
//	timeout = "90s"
//
//	[tools.cert_enrollment_create]
//	disabled = true
type overridesFile struct {
	Tools map[string]overrideEntry `toml:"tools"`
}

type overrideEntry struct {
	Timeout  string `toml:"timeout"`
	CacheTTL string `toml:"cache_ttl"`
	Disabled bool   `toml:"disabled"`
}

// LoadOverrides parses the per-tool overrides file. An empty path means no
// overrides. Parse findings are accumulated so the operator sees every bad
// entry at once.
func LoadOverrides(path string) (map[string]domain.ToolOverride, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}

	var file overridesFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse overrides: %w", err)
	}

	overrides := make(map[string]domain.ToolOverride, len(file.Tools))
	var findings []string
	for name, entry := range file.Tools {
		override := domain.ToolOverride{Disabled: entry.Disabled}
		if entry.Timeout != "" {
			d, err := time.ParseDuration(entry.Timeout)
			if err != nil || d <= 0 {
				findings = append(findings, fmt.Sprintf("tools.%s: timeout %q is not a positive duration", name, entry.Timeout))
			} else {
				override.Timeout = &d
			}
		}
		if entry.CacheTTL != "" {
			d, err := time.ParseDuration(entry.CacheTTL)
			if err != nil || d <= 0 {
				findings = append(findings, fmt.Sprintf("tools.%s: cache_ttl %q is not a positive duration", name, entry.CacheTTL))
			} else {
				override.CacheTTL = &d
			}
		}
		overrides[name] = override
	}
	if len(findings) > 0 {
		return nil, errors.New(strings.Join(findings, "; "))
	}
	return overrides, nil
}

// ApplyOverrides rewrites registry definitions in place, before Freeze.
// Unknown tool names and no-op TTLs come back as warnings rather than
// errors so one stale entry does not block startup.
func ApplyOverrides(reg *registry.Registry, overrides map[string]domain.ToolOverride, logger *zap.Logger) []string {
	if logger == nil {
		logger = zap.NewNop()
	}
	var warnings []string
	for name, override := range overrides {
		def, ok := reg.Get(name)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("override for unknown tool %q ignored", name))
			continue
		}
		if override.Disabled {
			if err := reg.Remove(name); err != nil {
				warnings = append(warnings, fmt.Sprintf("disable %q: %v", name, err))
				continue
			}
			logger.Info("tool disabled by override", zap.String("tool", name))
			continue
		}
		if override.Timeout != nil {
			def.Timeout = *override.Timeout
		}
		if override.CacheTTL != nil {
			if def.Cacheable {
				def.CacheTTL = *override.CacheTTL
			} else {
				warnings = append(warnings, fmt.Sprintf("cache_ttl override on non-cacheable tool %q ignored", name))
			}
		}
		if err := reg.Override(def); err != nil {
			warnings = append(warnings, fmt.Sprintf("override %q: %v", name, err))
		}
	}
	return warnings
}
