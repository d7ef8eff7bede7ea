package permissions

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/freshapi/freshapi/pkg/validator"
)

// ResourceDef describes a seed-time resource and the actions defined under it.
type ResourceDef struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Actions     []ActionDef `json:"actions"`
}

// ActionDef names one action of a resource.
type ActionDef struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type vocabularyRegistry struct {
	mu        sync.RWMutex
	resources map[string]*ResourceDef
}

var globalRegistry = &vocabularyRegistry{
	resources: make(map[string]*ResourceDef),
}

var (
	// ErrUnknownResource indicates a resource name that was never registered.
	ErrUnknownResource = errors.New("permission: unknown resource")
	// ErrUnknownAction indicates an action that is not defined for its resource.
	ErrUnknownAction = errors.New("permission: unknown action")

	errNilResource      = errors.New("permission: nil resource definition")
	errInvalidName      = errors.New("permission: invalid name")
	errDuplicateName    = errors.New("permission: already registered")
	errDuplicateAction  = errors.New("permission: duplicate action")
	errResourceNoAction = errors.New("permission: resource defines no actions")
)

// Register adds a resource and its actions to the global vocabulary.
func Register(def *ResourceDef) error {
	if def == nil {
		return errNilResource
	}

	cp := cloneResource(def)
	cp.Name = strings.TrimSpace(cp.Name)
	if !validator.IsIdentifier(cp.Name) {
		return fmt.Errorf("%w: resource %q", errInvalidName, cp.Name)
	}
	if len(cp.Actions) == 0 {
		return fmt.Errorf("%w: %s", errResourceNoAction, cp.Name)
	}

	seen := make(map[string]struct{}, len(cp.Actions))
	for i := range cp.Actions {
		name := strings.TrimSpace(cp.Actions[i].Name)
		if !validator.IsIdentifier(name) {
			return fmt.Errorf("%w: action %q on %s", errInvalidName, name, cp.Name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: %s.%s", errDuplicateAction, cp.Name, name)
		}
		seen[name] = struct{}{}
		cp.Actions[i].Name = name
	}

	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	if _, exists := globalRegistry.resources[cp.Name]; exists {
		return fmt.Errorf("%w: %s", errDuplicateName, cp.Name)
	}

	globalRegistry.resources[cp.Name] = cp
	return nil
}

// Get returns a copy of the resource definition when registered.
func Get(name string) (*ResourceDef, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	def, ok := globalRegistry.resources[name]
	if !ok {
		return nil, false
	}
	return cloneResource(def), true
}

// GetAll returns a copy of all registered resources keyed by name.
func GetAll() map[string]*ResourceDef {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	out := make(map[string]*ResourceDef, len(globalRegistry.resources))
	for name, def := range globalRegistry.resources {
		out[name] = cloneResource(def)
	}
	return out
}

// MustBeKnown validates a (resource, action) literal used at a guard call
// site. It is meant for boot-time wiring, where an unknown name is a
// configuration error rather than a runtime denial.
func MustBeKnown(resource, action string) error {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	def, ok := globalRegistry.resources[resource]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownResource, resource)
	}
	for _, a := range def.Actions {
		if a.Name == action {
			return nil
		}
	}
	return fmt.Errorf("%w %q on %q", ErrUnknownAction, action, resource)
}

func cloneResource(def *ResourceDef) *ResourceDef {
	if def == nil {
		return nil
	}
	cp := *def
	if len(def.Actions) > 0 {
		cp.Actions = append([]ActionDef(nil), def.Actions...)
	}
	return &cp
}
