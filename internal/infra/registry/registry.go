package registry

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
)

// Registry holds every tool the server exposes. Registration happens during
// startup wiring; after Freeze the set is immutable and lookups race nothing.
type Registry struct {
	logger *zap.Logger

	mu     sync.RWMutex
	byName map[string]int
	defs   []domain.ToolDefinition
	frozen bool
}

func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger: logger.Named("registry"),
		byName: make(map[string]int),
	}
}

// Register adds a definition. Duplicate names fail loudly; use Override to
// replace an existing tool on purpose.
func (r *Registry) Register(def domain.ToolDefinition) error {
	if problems := def.Validate(); len(problems) > 0 {
		return fmt.Errorf("%w: %s: %s", domain.ErrInvalidDefinition, def.Name, strings.Join(problems, "; "))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: register %s", domain.ErrRegistryFrozen, def.Name)
	}
	if _, exists := r.byName[def.Name]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateTool, def.Name)
	}

	r.byName[def.Name] = len(r.defs)
	r.defs = append(r.defs, def)
	r.logger.Debug("tool registered",
		zap.String("tool", def.Name),
		zap.String("domain", def.EffectiveDomain()),
		zap.Bool("cacheable", def.Cacheable),
	)
	return nil
}

// Override replaces an existing definition in its original position, or
// registers it fresh when absent.
func (r *Registry) Override(def domain.ToolDefinition) error {
	if problems := def.Validate(); len(problems) > 0 {
		return fmt.Errorf("%w: %s: %s", domain.ErrInvalidDefinition, def.Name, strings.Join(problems, "; "))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: override %s", domain.ErrRegistryFrozen, def.Name)
	}
	if idx, exists := r.byName[def.Name]; exists {
		r.defs[idx] = def
		r.logger.Info("tool overridden", zap.String("tool", def.Name))
		return nil
	}

	r.byName[def.Name] = len(r.defs)
	r.defs = append(r.defs, def)
	return nil
}

// Remove deletes a tool before Freeze, preserving the registration order of
// the rest.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: remove %s", domain.ErrRegistryFrozen, name)
	}
	idx, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrToolNotFound, name)
	}

	r.defs = append(r.defs[:idx], r.defs[idx+1:]...)
	delete(r.byName, name)
	for other, i := range r.byName {
		if i > idx {
			r.byName[other] = i - 1
		}
	}
	r.logger.Info("tool removed", zap.String("tool", name))
	return nil
}

func (r *Registry) Get(name string) (domain.ToolDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byName[name]
	if !ok {
		return domain.ToolDefinition{}, false
	}
	return r.defs[idx], true
}

// List returns all definitions in registration order.
func (r *Registry) List() []domain.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ToolDefinition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for _, def := range r.defs {
		names = append(names, def.Name)
	}
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// Freeze marks the end of startup wiring. Further Register/Override calls
// fail with ErrRegistryFrozen.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
	r.logger.Info("registry frozen", zap.Int("tools", len(r.defs)))
}

func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}
