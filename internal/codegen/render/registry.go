package render

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/router-for-me/CodegenAdmin/internal/models"
)

// DefaultGroup is the name of the built-in template group.
const DefaultGroup = "default"

// Definition is one template: an output path and a pure render function.
type Definition struct {
	ID           string
	Name         string
	PathTemplate string                    // `${identifier}` markers are resolved against Context.Vars.
	Language     string                    // Derived from the rendered path when empty.
	Categories   []models.TemplateCategory // Empty means every category.
	When         func(ctx *Context) bool   // Optional extra applicability check.
	Render       func(ctx *Context) (string, error)
}

// Applies reports whether the definition renders for ctx.
func (d Definition) Applies(ctx *Context) bool {
	if len(d.Categories) > 0 {
		match := false
		for _, category := range d.Categories {
			if category == ctx.Category {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	if d.When != nil && !d.When(ctx) {
		return false
	}
	return true
}

// Registry holds named template groups. It is built once at startup and passed to consumers.
type Registry struct {
	mu     sync.RWMutex
	groups map[string][]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{groups: make(map[string][]Definition)}
}

// Register appends definitions to group. Definition ids must be unique within a group.
func (r *Registry) Register(group string, defs ...Definition) error {
	group = strings.TrimSpace(group)
	if group == "" {
		return fmt.Errorf("render: empty group name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.groups[group]
	ids := make(map[string]struct{}, len(existing)+len(defs))
	for _, def := range existing {
		ids[def.ID] = struct{}{}
	}
	for _, def := range defs {
		if def.ID == "" || def.Render == nil {
			return fmt.Errorf("render: template in group %s needs an id and a render function", group)
		}
		if _, dup := ids[def.ID]; dup {
			return fmt.Errorf("render: duplicate template %s in group %s", def.ID, group)
		}
		ids[def.ID] = struct{}{}
		existing = append(existing, def)
	}
	r.groups[group] = existing
	return nil
}

// Group returns a copy of the definitions of group.
func (r *Registry) Group(group string) ([]Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs, ok := r.groups[group]
	if !ok {
		return nil, false
	}
	out := make([]Definition, len(defs))
	copy(out, defs)
	return out, true
}

// Groups returns the registered group names, sorted.
func (r *Registry) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.groups))
	for name := range r.groups {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
