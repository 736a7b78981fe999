package entities

import (
	"fmt"
	"time"
)

// DeviceOperation names an appliance command.
type DeviceOperation string

const (
	OperationPowerOn     DeviceOperation = "power_on"
	OperationPowerOff    DeviceOperation = "power_off"
	OperationVolumeUp    DeviceOperation = "volume_up"
	OperationVolumeDown  DeviceOperation = "volume_down"
	OperationVolumeMute  DeviceOperation = "volume_mute"
	OperationVolumeSet   DeviceOperation = "volume_set"
	OperationChannelUp   DeviceOperation = "channel_up"
	OperationChannelDown DeviceOperation = "channel_down"
	OperationChannelSet  DeviceOperation = "channel_set"
	OperationChangeInput DeviceOperation = "change_input"
)

const (
	DeviceTV    = "tv"
	DeviceModem = "modem"
)

const (
	MaxVolume = 100
	MinVolume = 0
)

// DeviceCommand is a single instruction sent to an appliance. ID is unique per
// command so controllers can drop duplicates.
type DeviceCommand struct {
	ID        string          `json:"id"`
	Device    string          `json:"device"`
	Operation DeviceOperation `json:"operation"`
	Value     int             `json:"value,omitempty"`
	Source    string          `json:"source,omitempty"`
	IssuedAt  time.Time       `json:"issued_at"`
}

// DeviceState is the last known state of an appliance.
type DeviceState struct {
	Device    string    `json:"device"`
	Power     bool      `json:"power"`
	Volume    int       `json:"volume"`
	Muted     bool      `json:"muted"`
	Channel   int       `json:"channel"`
	Input     string    `json:"input"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDeviceState returns the factory state of a device.
func NewDeviceState(device string) *DeviceState {
	return &DeviceState{
		Device:  device,
		Volume:  20,
		Channel: 1,
		Input:   "hdmi1",
	}
}

// Apply mutates the state according to cmd. Absolute operations (power,
// volume_set, channel_set, mute, change_input) are idempotent.
func (s *DeviceState) Apply(cmd DeviceCommand) error {
	switch cmd.Operation {
	case OperationPowerOn:
		s.Power = true
	case OperationPowerOff:
		s.Power = false
	case OperationVolumeUp:
		s.Volume = clamp(s.Volume+stepsOf(cmd), MinVolume, MaxVolume)
		s.Muted = false
	case OperationVolumeDown:
		s.Volume = clamp(s.Volume-stepsOf(cmd), MinVolume, MaxVolume)
		s.Muted = false
	case OperationVolumeMute:
		s.Muted = true
	case OperationVolumeSet:
		if cmd.Value < MinVolume || cmd.Value > MaxVolume {
			return fmt.Errorf("volume %d out of range %d-%d", cmd.Value, MinVolume, MaxVolume)
		}
		s.Volume = cmd.Value
		s.Muted = false
	case OperationChannelUp:
		s.Channel++
	case OperationChannelDown:
		if s.Channel > 1 {
			s.Channel--
		}
	case OperationChannelSet:
		if cmd.Value < 1 {
			return fmt.Errorf("channel must be at least 1, got %d", cmd.Value)
		}
		s.Channel = cmd.Value
	case OperationChangeInput:
		if cmd.Source == "" {
			return fmt.Errorf("input source is required")
		}
		s.Input = cmd.Source
	default:
		return fmt.Errorf("unknown operation %q", cmd.Operation)
	}
	s.UpdatedAt = cmd.IssuedAt
	return nil
}

func stepsOf(cmd DeviceCommand) int {
	if cmd.Value <= 0 {
		return 1
	}
	return cmd.Value
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
