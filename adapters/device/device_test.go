package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/domain/repositories"
)

func TestUnimplementedController(t *testing.T) {
	ctl := NewUnimplemented(zap.NewNop())

	err := ctl.Execute(context.Background(), entities.DeviceCommand{Device: "tv", Operation: entities.OperationPowerOn})
	if !errors.Is(err, repositories.ErrNotImplemented) {
		t.Errorf("Expected ErrNotImplemented, got %v", err)
	}
}

func TestMemoryControllerAppliesCommands(t *testing.T) {
	ctl := NewMemoryController(zaptest.NewLogger(t), entities.DeviceTV, entities.DeviceModem)
	ctx := context.Background()

	commands := []entities.DeviceCommand{
		{ID: "1", Device: "tv", Operation: entities.OperationPowerOn},
		{ID: "2", Device: "tv", Operation: entities.OperationVolumeSet, Value: 35},
		{ID: "3", Device: "modem", Operation: entities.OperationPowerOn},
	}
	for _, cmd := range commands {
		if err := ctl.Execute(ctx, cmd); err != nil {
			t.Fatalf("Execute(%s) failed: %v", cmd.Operation, err)
		}
	}

	tv, ok := ctl.State("tv")
	if !ok {
		t.Fatal("Expected tv state")
	}
	if !tv.Power || tv.Volume != 35 {
		t.Errorf("Unexpected tv state: %+v", tv)
	}
	modem, _ := ctl.State("modem")
	if !modem.Power {
		t.Error("Expected modem to be on")
	}
}

func TestMemoryControllerIgnoresDuplicateCommandIDs(t *testing.T) {
	ctl := NewMemoryController(zap.NewNop(), entities.DeviceTV)
	cmd := entities.DeviceCommand{ID: "same", Device: "tv", Operation: entities.OperationVolumeUp, Value: 10}

	for i := 0; i < 3; i++ {
		if err := ctl.Execute(context.Background(), cmd); err != nil {
			t.Fatal(err)
		}
	}

	tv, _ := ctl.State("tv")
	if tv.Volume != 30 {
		t.Errorf("Expected a single volume step to 30, got %d", tv.Volume)
	}
}

func TestMemoryControllerForgetsOldCommandIDs(t *testing.T) {
	ctl := NewMemoryController(zap.NewNop(), entities.DeviceTV)
	ctx := context.Background()
	first := entities.DeviceCommand{ID: "first", Device: "tv", Operation: entities.OperationVolumeUp, Value: 10}

	if err := ctl.Execute(ctx, first); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < recentCommandLimit; i++ {
		cmd := entities.DeviceCommand{ID: fmt.Sprintf("power-%d", i), Device: "tv", Operation: entities.OperationPowerOn}
		if err := ctl.Execute(ctx, cmd); err != nil {
			t.Fatal(err)
		}
	}

	if len(ctl.seen) != recentCommandLimit {
		t.Errorf("Expected %d remembered IDs, got %d", recentCommandLimit, len(ctl.seen))
	}
	if _, ok := ctl.seen["first"]; ok {
		t.Error("Oldest command ID should have been evicted")
	}

	// Once forgotten, the ID is applied again.
	if err := ctl.Execute(ctx, first); err != nil {
		t.Fatal(err)
	}
	tv, _ := ctl.State("tv")
	if tv.Volume != 40 {
		t.Errorf("Expected volume 40 after the replay, got %d", tv.Volume)
	}
}

func TestMemoryControllerRejectsUnknownDevice(t *testing.T) {
	ctl := NewMemoryController(zap.NewNop(), entities.DeviceTV)

	if err := ctl.Execute(context.Background(), entities.DeviceCommand{ID: "x", Device: "fridge", Operation: entities.OperationPowerOn}); err == nil {
		t.Error("Expected error for unknown device")
	}
	if err := ctl.Execute(context.Background(), entities.DeviceCommand{Operation: entities.OperationPowerOn}); err == nil {
		t.Error("Expected error for empty device")
	}
}

type fakeToken struct {
	err      error
	complete bool
}

func (t *fakeToken) Wait() bool                     { return t.complete }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.complete }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeMQTTClient struct {
	mqtt.Client
	token *fakeToken
	sent  []published
}

func (f *fakeMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.sent = append(f.sent, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return f.token
}

func TestMQTTControllerPublishesCommand(t *testing.T) {
	client := &fakeMQTTClient{token: &fakeToken{complete: true}}
	ctl := newMQTTController(client, MQTTConfig{QoS: 1}, zap.NewNop())

	cmd := entities.DeviceCommand{ID: "cmd-1", Device: "tv", Operation: entities.OperationChannelSet, Value: 4}
	if err := ctl.Execute(context.Background(), cmd); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(client.sent) != 1 {
		t.Fatalf("Expected 1 publish, got %d", len(client.sent))
	}
	msg := client.sent[0]
	if msg.topic != "appliance/tv/command" {
		t.Errorf("Unexpected topic %s", msg.topic)
	}
	if msg.qos != 1 {
		t.Errorf("Expected QoS 1, got %d", msg.qos)
	}

	var decoded entities.DeviceCommand
	if err := json.Unmarshal(msg.payload, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.ID != "cmd-1" || decoded.Operation != entities.OperationChannelSet || decoded.Value != 4 {
		t.Errorf("Unexpected payload %+v", decoded)
	}
}

func TestMQTTControllerReportsPublishFailures(t *testing.T) {
	failing := &fakeMQTTClient{token: &fakeToken{complete: true, err: errors.New("not connected")}}
	ctl := newMQTTController(failing, MQTTConfig{}, zap.NewNop())
	if err := ctl.Execute(context.Background(), entities.DeviceCommand{Device: "tv", Operation: entities.OperationPowerOff}); err == nil {
		t.Error("Expected publish error")
	}

	stalled := &fakeMQTTClient{token: &fakeToken{complete: false}}
	ctl = newMQTTController(stalled, MQTTConfig{Topic: "ir/{device}"}, zap.NewNop())
	if err := ctl.Execute(context.Background(), entities.DeviceCommand{Device: "tv", Operation: entities.OperationPowerOff}); err == nil {
		t.Error("Expected timeout error")
	}
	if stalled.sent[0].topic != "ir/tv" {
		t.Errorf("Expected custom topic, got %s", stalled.sent[0].topic)
	}
}
