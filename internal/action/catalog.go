package action

import (
	"github.com/revgen/voicecmd/domain/repositories"
)

// NewDefaultRegistry registers the calculator and every appliance action
// against controller, then freezes the registry.
func NewDefaultRegistry(controller repositories.DeviceController) (*Registry, error) {
	r := NewRegistry()

	if err := r.Register(calculateSpec, calculateHandler); err != nil {
		return nil, err
	}
	for _, a := range deviceActions {
		if err := r.Register(a.spec(), a.handler(controller)); err != nil {
			return nil, err
		}
	}

	r.Freeze()
	return r, nil
}
