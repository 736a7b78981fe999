package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/domain/repositories"
)

// InputSources are the inputs change_input accepts.
var InputSources = []string{"hdmi1", "hdmi2", "hdmi3", "av", "tv", "usb"}

var (
	zero       = 0.0
	one        = 1.0
	maxVolume  = float64(entities.MaxVolume)
	maxSteps   = 50.0
	allDevices = []string{entities.DeviceTV, entities.DeviceModem}
)

func deviceProperty(devices []string) entities.Property {
	return entities.Property{
		Type:        entities.PropertyString,
		Description: "The appliance to control; defaults to the tv",
		Enum:        devices,
	}
}

type deviceAction struct {
	operation   entities.DeviceOperation
	description string
	// devices lists the appliances that support the operation.
	devices []string
	extra   map[string]entities.Property
	require []string
}

var deviceActions = []deviceAction{
	{operation: entities.OperationPowerOn, description: "Turn an appliance on", devices: allDevices},
	{operation: entities.OperationPowerOff, description: "Turn an appliance off", devices: allDevices},
	{
		operation:   entities.OperationVolumeUp,
		description: "Increase the TV volume",
		devices:     []string{entities.DeviceTV},
		extra: map[string]entities.Property{
			"steps": {Type: entities.PropertyInteger, Description: "How many steps to raise the volume", Minimum: &one, Maximum: &maxSteps},
		},
	},
	{
		operation:   entities.OperationVolumeDown,
		description: "Decrease the TV volume",
		devices:     []string{entities.DeviceTV},
		extra: map[string]entities.Property{
			"steps": {Type: entities.PropertyInteger, Description: "How many steps to lower the volume", Minimum: &one, Maximum: &maxSteps},
		},
	},
	{operation: entities.OperationVolumeMute, description: "Mute the TV", devices: []string{entities.DeviceTV}},
	{
		operation:   entities.OperationVolumeSet,
		description: "Set the TV volume to an exact level",
		devices:     []string{entities.DeviceTV},
		extra: map[string]entities.Property{
			"level": {Type: entities.PropertyInteger, Description: "Volume level from 0 to 100", Minimum: &zero, Maximum: &maxVolume},
		},
		require: []string{"level"},
	},
	{operation: entities.OperationChannelUp, description: "Go to the next TV channel", devices: []string{entities.DeviceTV}},
	{operation: entities.OperationChannelDown, description: "Go to the previous TV channel", devices: []string{entities.DeviceTV}},
	{
		operation:   entities.OperationChannelSet,
		description: "Switch the TV to a channel number",
		devices:     []string{entities.DeviceTV},
		extra: map[string]entities.Property{
			"number": {Type: entities.PropertyInteger, Description: "Channel number", Minimum: &one},
		},
		require: []string{"number"},
	},
	{
		operation:   entities.OperationChangeInput,
		description: "Change the TV input source",
		devices:     []string{entities.DeviceTV},
		extra: map[string]entities.Property{
			"source": {Type: entities.PropertyString, Description: "Input source", Enum: InputSources},
		},
		require: []string{"source"},
	},
}

func (a deviceAction) spec() entities.ToolSpec {
	props := map[string]entities.Property{"device": deviceProperty(a.devices)}
	for name, p := range a.extra {
		props[name] = p
	}
	return entities.ToolSpec{
		Name:        string(a.operation),
		Description: a.description,
		Parameters:  entities.ParameterSchema{Properties: props, Required: a.require},
	}
}

// command builds the DeviceCommand for validated args. Each call gets a fresh
// ID so a controller can recognise redelivery of the same command.
func (a deviceAction) command(args map[string]any, now time.Time) entities.DeviceCommand {
	cmd := entities.DeviceCommand{
		ID:        uuid.New().String(),
		Device:    stringArg(args, "device", entities.DeviceTV),
		Operation: a.operation,
		IssuedAt:  now,
	}
	switch a.operation {
	case entities.OperationVolumeUp, entities.OperationVolumeDown:
		cmd.Value = intArg(args, "steps", 1)
	case entities.OperationVolumeSet:
		cmd.Value = intArg(args, "level", 0)
	case entities.OperationChannelSet:
		cmd.Value = intArg(args, "number", 1)
	case entities.OperationChangeInput:
		cmd.Source = stringArg(args, "source", "")
	}
	return cmd
}

func (a deviceAction) handler(controller repositories.DeviceController) Handler {
	return func(ctx context.Context, args map[string]any) (entities.ActionResult, error) {
		cmd := a.command(args, time.Now())

		if err := controller.Execute(ctx, cmd); err != nil {
			if errors.Is(err, repositories.ErrNotImplemented) {
				return entities.NotImplemented(fmt.Sprintf("%s is not available for the %s yet", a.operation, cmd.Device)), nil
			}
			return entities.Failed(err.Error()), nil
		}

		return entities.Succeeded(map[string]any{
			"command_id": cmd.ID,
			"device":     cmd.Device,
			"operation":  string(cmd.Operation),
		}), nil
	}
}
