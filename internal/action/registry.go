package action

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/revgen/voicecmd/domain/entities"
)

var (
	// ErrUnknownAction is returned for names that were never registered.
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidArguments is returned when arguments do not match the tool's
	// parameter schema or are rejected by its handler.
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrRegistryFrozen is returned by Register after Freeze.
	ErrRegistryFrozen = errors.New("action registry is frozen")
	// ErrDuplicateAction is returned when a name is registered twice.
	ErrDuplicateAction = errors.New("action already registered")
)

// Handler runs one action. Runtime failures belong in the returned result;
// an error is only for arguments the handler cannot use.
type Handler func(ctx context.Context, args map[string]any) (entities.ActionResult, error)

type registration struct {
	spec    entities.ToolSpec
	handler Handler
}

// Registry maps tool names to handlers. It is populated at startup and then
// frozen; after Freeze it is only read and may be shared between goroutines.
type Registry struct {
	actions map[string]registration
	frozen  bool
}

func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]registration)}
}

// Register adds a handler under spec.Name.
func (r *Registry) Register(spec entities.ToolSpec, handler Handler) error {
	if r.frozen {
		return ErrRegistryFrozen
	}
	if spec.Name == "" {
		return errors.New("action name is required")
	}
	if handler == nil {
		return fmt.Errorf("handler for %q is nil", spec.Name)
	}
	if _, exists := r.actions[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAction, spec.Name)
	}
	r.actions[spec.Name] = registration{spec: spec, handler: handler}
	return nil
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.frozen = true
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.actions[name]
	return ok
}

// Tools returns the catalog advertised to the reasoning engine, sorted by name.
func (r *Registry) Tools() []entities.ToolSpec {
	specs := make([]entities.ToolSpec, 0, len(r.actions))
	for _, reg := range r.actions {
		specs = append(specs, reg.spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Invoke validates args against the tool's schema and runs its handler.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (entities.ActionResult, error) {
	reg, ok := r.actions[name]
	if !ok {
		return entities.ActionResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := validateArguments(reg.spec.Parameters, args); err != nil {
		return entities.ActionResult{}, fmt.Errorf("%w for %s: %v", ErrInvalidArguments, name, err)
	}

	result, err := reg.handler(ctx, args)
	if err != nil {
		if errors.Is(err, ErrInvalidArguments) {
			return entities.ActionResult{}, err
		}
		return entities.Failed(err.Error()), nil
	}
	return result, nil
}
