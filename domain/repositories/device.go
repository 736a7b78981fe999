package repositories

import (
	"context"
	"errors"

	"github.com/revgen/voicecmd/domain/entities"
)

// ErrNotImplemented is returned by controllers that cannot drive hardware.
var ErrNotImplemented = errors.New("device control not implemented")

// DeviceController delivers commands to household appliances
type DeviceController interface {
	// Execute applies cmd. Repeating a command with the same ID has no
	// further effect.
	Execute(ctx context.Context, cmd entities.DeviceCommand) error
}
