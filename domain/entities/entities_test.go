package entities

import (
	"testing"
	"time"
)

func TestAudioClipExtension(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"command.WAV", "wav"},
		{"clip.m4a", "m4a"},
		{"archive.tar.mp3", "mp3"},
		{"noextension", ""},
		{"", ""},
	}

	for _, tt := range tests {
		clip := AudioClip{Filename: tt.filename}
		if got := clip.Extension(); got != tt.want {
			t.Errorf("Extension(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestAudioFormatValidate(t *testing.T) {
	if err := StreamingFormat().Validate(); err != nil {
		t.Errorf("Streaming format should be valid, got: %v", err)
	}

	invalid := []AudioFormat{
		{SampleRateHz: 0, ChannelCount: 1, SampleWidthBits: 16},
		{SampleRateHz: 16000, ChannelCount: 0, SampleWidthBits: 16},
		{SampleRateHz: 16000, ChannelCount: 1, SampleWidthBits: 12},
		{SampleRateHz: 16000, ChannelCount: 1, SampleWidthBits: 64},
	}
	for _, f := range invalid {
		if err := f.Validate(); err == nil {
			t.Errorf("Expected validation error for %+v", f)
		}
	}
}

func TestCommandRequestValidate(t *testing.T) {
	if err := (CommandRequest{Text: "   "}).Validate(); err == nil {
		t.Error("Blank command text should not validate")
	}
	if err := (CommandRequest{Text: "turn on the tv"}).Validate(); err != nil {
		t.Errorf("Expected valid request, got: %v", err)
	}
}

func TestParameterSchemaJSONSchema(t *testing.T) {
	minLevel := 0.0
	schema := ParameterSchema{
		Properties: map[string]Property{
			"level":  {Type: PropertyInteger, Minimum: &minLevel},
			"device": {Type: PropertyString, Enum: []string{DeviceTV}},
		},
		Required: []string{"level"},
	}

	out := schema.JSONSchema()
	if out["type"] != "object" {
		t.Errorf("Expected object schema, got %v", out["type"])
	}
	props := out["properties"].(map[string]any)
	level := props["level"].(map[string]any)
	if level["type"] != "integer" || level["minimum"] != 0.0 {
		t.Errorf("Unexpected level property: %v", level)
	}
	device := props["device"].(map[string]any)
	if enum := device["enum"].([]string); len(enum) != 1 || enum[0] != DeviceTV {
		t.Errorf("Unexpected device enum: %v", device["enum"])
	}
}

func TestActionInvocationFailed(t *testing.T) {
	ok := ActionInvocation{Result: Succeeded(110)}
	if ok.Failed() {
		t.Error("Succeeded invocation should not be failed")
	}
	if !(ActionInvocation{Result: NotImplemented("no hardware")}).Failed() {
		t.Error("Not implemented invocation should count as failed")
	}
}

func TestDeviceStateApply(t *testing.T) {
	state := NewDeviceState(DeviceTV)
	now := time.Now()

	steps := []DeviceCommand{
		{Operation: OperationPowerOn},
		{Operation: OperationVolumeUp, Value: 5},
		{Operation: OperationVolumeMute},
		{Operation: OperationChannelSet, Value: 7},
		{Operation: OperationChannelDown},
		{Operation: OperationChangeInput, Source: "hdmi2", IssuedAt: now},
	}
	for _, cmd := range steps {
		if err := state.Apply(cmd); err != nil {
			t.Fatalf("Apply(%s) failed: %v", cmd.Operation, err)
		}
	}

	if !state.Power {
		t.Error("Expected power on")
	}
	if state.Volume != 25 {
		t.Errorf("Expected volume 25, got %d", state.Volume)
	}
	if !state.Muted {
		t.Error("Expected muted")
	}
	if state.Channel != 6 {
		t.Errorf("Expected channel 6, got %d", state.Channel)
	}
	if state.Input != "hdmi2" {
		t.Errorf("Expected input hdmi2, got %s", state.Input)
	}
	if !state.UpdatedAt.Equal(now) {
		t.Error("UpdatedAt should follow the last command")
	}
}

func TestDeviceStateVolumeBounds(t *testing.T) {
	state := NewDeviceState(DeviceTV)

	if err := state.Apply(DeviceCommand{Operation: OperationVolumeUp, Value: 500}); err != nil {
		t.Fatal(err)
	}
	if state.Volume != MaxVolume {
		t.Errorf("Expected volume clamped to %d, got %d", MaxVolume, state.Volume)
	}

	if err := state.Apply(DeviceCommand{Operation: OperationVolumeSet, Value: 101}); err == nil {
		t.Error("Expected error for volume above range")
	}
	if err := state.Apply(DeviceCommand{Operation: OperationChannelSet, Value: 0}); err == nil {
		t.Error("Expected error for channel 0")
	}
	if err := state.Apply(DeviceCommand{Operation: "self_destruct"}); err == nil {
		t.Error("Expected error for unknown operation")
	}
}

func TestDeviceStateAbsoluteOperationsIdempotent(t *testing.T) {
	state := NewDeviceState(DeviceTV)
	cmd := DeviceCommand{Operation: OperationVolumeSet, Value: 40}

	for i := 0; i < 3; i++ {
		if err := state.Apply(cmd); err != nil {
			t.Fatal(err)
		}
	}
	if state.Volume != 40 {
		t.Errorf("Expected volume 40 after repeated set, got %d", state.Volume)
	}
}
