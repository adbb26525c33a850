package command

import (
	"fmt"
	"sync"
)

// Registry holds the registered command definitions: a global set plus one
// namespace per user for custom commands. Lookups check the user namespace
// first. Definitions are append-only; ties between definitions are always
// broken by registration order, never by map iteration order.
type Registry struct {
	mu sync.RWMutex

	// global definitions in registration order.
	global []Definition

	// byName guards name uniqueness in the global namespace.
	byName map[string]struct{}

	// custom holds per-user definitions in registration order.
	custom map[string][]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]struct{}),
		custom: make(map[string][]Definition),
	}
}

// Register stores a global definition. The name must be unique among global
// definitions; registration order is preserved for deterministic tie-breaks.
func (r *Registry) Register(def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[def.Name]; exists {
		return fmt.Errorf("command %q already registered", def.Name)
	}
	r.byName[def.Name] = struct{}{}
	r.global = append(r.global, def)
	return nil
}

// RegisterCustom stores a definition under the given user's namespace.
// Custom definitions shadow global ones with the same intent.
func (r *Registry) RegisterCustom(userID string, def Definition) error {
	if userID == "" {
		return fmt.Errorf("custom command %q has no user", def.Name)
	}
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.custom[userID] {
		if existing.Name == def.Name {
			return fmt.Errorf("custom command %q already registered for user %s", def.Name, userID)
		}
	}
	r.custom[userID] = append(r.custom[userID], def)
	return nil
}

// FindByIntent returns the first definition matching the intent: the user's
// custom definitions are checked first, then the global set, each in
// registration order.
func (r *Registry) FindByIntent(intent, userID string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if userID != "" {
		for _, def := range r.custom[userID] {
			if def.Intent == intent {
				return def, true
			}
		}
	}
	for _, def := range r.global {
		if def.Intent == intent {
			return def, true
		}
	}
	return Definition{}, false
}

// Definitions returns the definitions visible to the given user: their custom
// definitions first, then the global set, each in registration order. The
// returned slice is a copy; the caller may not mutate the definitions.
func (r *Registry) Definitions(userID string) []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Definition, 0, len(r.custom[userID])+len(r.global))
	if userID != "" {
		out = append(out, r.custom[userID]...)
	}
	out = append(out, r.global...)
	return out
}

// HasCustom reports whether any custom definitions are registered for the
// user. The engine uses it to load a user's stored commands exactly once.
func (r *Registry) HasCustom(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.custom[userID]
	return ok
}

// MarkCustomLoaded records that the user's custom namespace has been
// populated, even if the external store returned no definitions.
func (r *Registry) MarkCustomLoaded(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.custom[userID]; !ok {
		r.custom[userID] = nil
	}
}

// Len returns the number of global definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.global)
}
