package device

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/domain/repositories"
)

// Unimplemented accepts every command and reports that no hardware is attached.
type Unimplemented struct {
	logger *zap.Logger
}

var _ repositories.DeviceController = (*Unimplemented)(nil)

func NewUnimplemented(logger *zap.Logger) *Unimplemented {
	return &Unimplemented{logger: logger}
}

func (u *Unimplemented) Execute(ctx context.Context, cmd entities.DeviceCommand) error {
	u.logger.Warn("Device command not implemented",
		zap.String("command_id", cmd.ID),
		zap.String("device", cmd.Device),
		zap.String("operation", string(cmd.Operation)))
	return fmt.Errorf("%w: %s on %s", repositories.ErrNotImplemented, cmd.Operation, cmd.Device)
}
