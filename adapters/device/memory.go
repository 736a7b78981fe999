package device

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/domain/repositories"
)

// recentCommandLimit bounds how many command IDs are kept for duplicate
// detection.
const recentCommandLimit = 256

// MemoryController simulates appliances in process memory. It is the
// controller used for demos and tests when no transmitter is attached.
type MemoryController struct {
	mu     sync.RWMutex
	states map[string]*entities.DeviceState // device -> state
	seen   map[string]struct{}              // recently applied command IDs
	recent []string                         // ring of the IDs in seen, oldest at next
	next   int
	logger *zap.Logger
}

var _ repositories.DeviceController = (*MemoryController)(nil)

// NewMemoryController creates a controller with the given devices in their
// factory state.
func NewMemoryController(logger *zap.Logger, devices ...string) *MemoryController {
	m := &MemoryController{
		states: make(map[string]*entities.DeviceState),
		seen:   make(map[string]struct{}, recentCommandLimit),
		recent: make([]string, recentCommandLimit),
		logger: logger,
	}
	for _, d := range devices {
		m.states[d] = entities.NewDeviceState(d)
	}
	return m
}

// Execute implements DeviceController interface
func (m *MemoryController) Execute(ctx context.Context, cmd entities.DeviceCommand) error {
	if cmd.Device == "" {
		return errors.New("device cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if cmd.ID != "" {
		if _, dup := m.seen[cmd.ID]; dup {
			m.logger.Debug("Ignoring duplicate device command", zap.String("command_id", cmd.ID))
			return nil
		}
	}

	state, exists := m.states[cmd.Device]
	if !exists {
		return errors.New("device not found")
	}
	if err := state.Apply(cmd); err != nil {
		return err
	}
	if cmd.ID != "" {
		m.remember(cmd.ID)
	}

	m.logger.Info("Device command applied",
		zap.String("command_id", cmd.ID),
		zap.String("device", cmd.Device),
		zap.String("operation", string(cmd.Operation)),
		zap.Bool("power", state.Power),
		zap.Int("volume", state.Volume),
		zap.Int("channel", state.Channel))
	return nil
}

// remember records id, evicting the oldest one once the ring is full.
func (m *MemoryController) remember(id string) {
	if old := m.recent[m.next]; old != "" {
		delete(m.seen, old)
	}
	m.recent[m.next] = id
	m.next = (m.next + 1) % len(m.recent)
	m.seen[id] = struct{}{}
}

// State returns a copy of the current state of device.
func (m *MemoryController) State(device string) (entities.DeviceState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.states[device]
	if !exists {
		return entities.DeviceState{}, false
	}
	return *state, true
}
