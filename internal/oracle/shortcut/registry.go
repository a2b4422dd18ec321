package shortcut

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/louisbranch/oracles/internal/platform/errors"
)

// Registry holds the shortcuts available for one game mode. Later
// registrations replace earlier ones with the same key, so user scripts can
// override built-ins.
type Registry struct {
	order []string
	byKey map[string]Definition
}

// NewRegistry validates and registers defs.
func NewRegistry(defs ...Definition) (*Registry, error) {
	registry := &Registry{byKey: map[string]Definition{}}
	if err := registry.Add(defs...); err != nil {
		return nil, err
	}
	return registry, nil
}

// Add validates and registers defs.
func (r *Registry) Add(defs ...Definition) error {
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return err
		}
		key := strings.TrimSpace(def.Key)
		if _, exists := r.byKey[key]; !exists {
			r.order = append(r.order, key)
		}
		r.byKey[key] = def
	}
	return nil
}

// Get returns the shortcut registered under key.
func (r *Registry) Get(key string) (Definition, error) {
	key = strings.TrimSpace(key)
	def, ok := r.byKey[key]
	if !ok {
		return Definition{}, apperrors.WithMetadata(
			apperrors.CodeShortcutNotFound,
			fmt.Sprintf("shortcut %q not found", key),
			map[string]string{"Key": key},
		)
	}
	return def, nil
}

// List returns the shortcuts in registration order.
func (r *Registry) List() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byKey[key])
	}
	return out
}

// Keys returns the registered keys sorted alphabetically.
func (r *Registry) Keys() []string {
	keys := append([]string{}, r.order...)
	sort.Strings(keys)
	return keys
}
