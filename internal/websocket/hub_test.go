package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/revgen/voicecmd/adapters/stt"
	"github.com/revgen/voicecmd/adapters/translate"
	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/usecase"
)

// fakeProcessor records clips and answers with a fixed outcome.
type fakeProcessor struct {
	mu      sync.Mutex
	clips   []entities.AudioClip
	outcome usecase.Outcome
}

func (p *fakeProcessor) Process(ctx context.Context, clip entities.AudioClip) usecase.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clips = append(p.clips, clip)
	return p.outcome
}

func (p *fakeProcessor) calls() []entities.AudioClip {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]entities.AudioClip(nil), p.clips...)
}

type receivedEvent struct {
	Event     EventName       `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

func setupTestHub(t *testing.T, processor usecase.Processor, config HubConfig) (*Hub, string) {
	t.Helper()
	hub := NewHub(processor, config, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/ws", hub.HandleWebSocket)
	srv := httptest.NewServer(e)

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) receivedEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	var ev receivedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		t.Fatalf("Event is not JSON: %v", err)
	}
	return ev
}

func sendControl(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatal(err)
	}
}

func sendFrame(t *testing.T, conn *websocket.Conn, frame []byte) {
	t.Helper()
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		t.Fatal(err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_ConnectEmitsStatus(t *testing.T) {
	hub, url := setupTestHub(t, &fakeProcessor{}, HubConfig{})
	conn := dial(t, url)

	ev := readEvent(t, conn)
	if ev.Event != EventStatus {
		t.Fatalf("Expected status event, got %s", ev.Event)
	}
	var status StatusData
	if err := json.Unmarshal(ev.Data, &status); err != nil {
		t.Fatal(err)
	}
	if status.Status != "connected" || status.SessionID == "" {
		t.Errorf("Unexpected status %+v", status)
	}
	if ev.Timestamp == "" {
		t.Error("Expected a timestamp")
	}

	waitFor(t, "registration", func() bool { return hub.SessionCount() == 1 })
}

func TestHub_PingPong(t *testing.T) {
	_, url := setupTestHub(t, &fakeProcessor{}, HubConfig{})
	conn := dial(t, url)
	readEvent(t, conn)

	sendControl(t, conn, `{"event":"ping"}`)

	if ev := readEvent(t, conn); ev.Event != EventPong {
		t.Errorf("Expected pong, got %s", ev.Event)
	}
}

func TestHub_AudioEndProcessesUtterance(t *testing.T) {
	processor := &fakeProcessor{outcome: usecase.Outcome{
		Kind:           usecase.OutcomeSuccess,
		OriginalText:   "ടിവി ഓൺ ചെയ്യൂ",
		TranslatedText: "turn on the tv",
	}}
	_, url := setupTestHub(t, processor, HubConfig{})
	conn := dial(t, url)
	readEvent(t, conn)

	frames := [][]byte{{1, 0, 2, 0}, {3, 0}, {4, 0, 5, 0}}
	for _, f := range frames {
		sendFrame(t, conn, f)
	}
	sendControl(t, conn, `{"event":"audio_end"}`)

	ev := readEvent(t, conn)
	if ev.Event != EventTranscription {
		t.Fatalf("Expected transcription event, got %s: %s", ev.Event, ev.Data)
	}
	var data TranscriptionData
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.OriginalText != "ടിവി ഓൺ ചെയ്യൂ" || data.TranslatedText != "turn on the tv" {
		t.Errorf("Unexpected transcription %+v", data)
	}

	clips := processor.calls()
	if len(clips) != 1 {
		t.Fatalf("Expected 1 processing call, got %d", len(clips))
	}
	if !bytes.Equal(clips[0].Data, []byte{1, 0, 2, 0, 3, 0, 4, 0, 5, 0}) {
		t.Errorf("Frames should be concatenated in arrival order, got %v", clips[0].Data)
	}
	if !clips[0].IsRaw() || clips[0].Format.SampleRateHz != 16000 {
		t.Errorf("Unexpected clip format %+v", clips[0].Format)
	}

	// The buffer is reset after each utterance.
	sendFrame(t, conn, []byte{9, 0})
	sendControl(t, conn, `{"type":"listening_end"}`)
	readEvent(t, conn)
	clips = processor.calls()
	if len(clips) != 2 || !bytes.Equal(clips[1].Data, []byte{9, 0}) {
		t.Errorf("Second utterance should contain only its own frames, got %+v", clips)
	}
}

func TestHub_DisconnectDiscardsBuffer(t *testing.T) {
	processor := &fakeProcessor{}
	hub, url := setupTestHub(t, processor, HubConfig{})
	conn := dial(t, url)
	readEvent(t, conn)
	waitFor(t, "registration", func() bool { return hub.SessionCount() == 1 })

	for i := 0; i < 3; i++ {
		sendFrame(t, conn, make([]byte, 640))
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	waitFor(t, "session cleanup", func() bool { return hub.SessionCount() == 0 })
	time.Sleep(50 * time.Millisecond)
	if n := len(processor.calls()); n != 0 {
		t.Errorf("Expected no processing after disconnect, got %d calls", n)
	}
}

func TestHub_UtteranceTooLong(t *testing.T) {
	processor := &fakeProcessor{}
	_, url := setupTestHub(t, processor, HubConfig{MaxUtteranceBytes: 8})
	conn := dial(t, url)
	readEvent(t, conn)

	sendFrame(t, conn, make([]byte, 6))
	sendFrame(t, conn, make([]byte, 6))

	ev := readEvent(t, conn)
	var data ErrorData
	json.Unmarshal(ev.Data, &data)
	if ev.Event != EventError || data.Type != ErrorTypeUtteranceTooLong {
		t.Fatalf("Expected utterance too long error, got %s %+v", ev.Event, data)
	}

	sendControl(t, conn, `{"event":"audio_end"}`)
	readEvent(t, conn)
	clips := processor.calls()
	if len(clips) != 1 || len(clips[0].Data) != 0 {
		t.Errorf("Buffer should have been reset, got %+v", clips)
	}
}

func TestHub_OutcomeErrors(t *testing.T) {
	cases := []struct {
		name     string
		outcome  usecase.Outcome
		wantType string
	}{
		{"no speech", usecase.Outcome{Kind: usecase.OutcomeNoSpeechDetected}, ErrorTypeNoSpeechDetected},
		{"invalid", usecase.Outcome{Kind: usecase.OutcomeInvalidInput, Reason: usecase.ReasonMissingAudio}, ErrorTypeInvalidInput},
		{"upstream", usecase.Outcome{
			Kind:      usecase.OutcomeUpstreamFailure,
			Stage:     usecase.StageTranslation,
			Message:   "quota",
			ErrorType: "TranslationEngineError",
		}, "TranslationEngineError"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, url := setupTestHub(t, &fakeProcessor{outcome: tc.outcome}, HubConfig{})
			conn := dial(t, url)
			readEvent(t, conn)

			sendFrame(t, conn, []byte{0, 0})
			sendControl(t, conn, `{"event":"audio_end"}`)

			ev := readEvent(t, conn)
			var data ErrorData
			if err := json.Unmarshal(ev.Data, &data); err != nil {
				t.Fatal(err)
			}
			if ev.Event != EventError || data.Type != tc.wantType || data.Message == "" {
				t.Errorf("Unexpected event %s %+v", ev.Event, data)
			}
		})
	}
}

func TestHub_EmptyUtteranceIsNoSpeech(t *testing.T) {
	logger := zaptest.NewLogger(t)
	pipeline := usecase.NewPipeline(
		stt.NewMockSpeechToText("ടിവി ഓൺ ചെയ്യൂ", logger),
		translate.NewMockTranslator(logger),
		nil,
		usecase.DefaultPipelineConfig(),
		logger,
	)
	_, url := setupTestHub(t, pipeline, HubConfig{})
	conn := dial(t, url)
	readEvent(t, conn)

	sendControl(t, conn, `{"event":"audio_end"}`)

	ev := readEvent(t, conn)
	var data ErrorData
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		t.Fatal(err)
	}
	if ev.Event != EventError || data.Type != ErrorTypeNoSpeechDetected || data.Message != usecase.MessageNoSpeech {
		t.Errorf("Expected no speech error, got %s %+v", ev.Event, data)
	}
}

func TestClient_FullSendBufferClosesSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &Client{
		send:   make(chan WriteData),
		ctx:    ctx,
		cancel: cancel,
		logger: zaptest.NewLogger(t),
	}

	code, _ := c.closeStatus()
	if code != websocket.CloseNormalClosure {
		t.Errorf("Expected normal closure before any overflow, got %d", code)
	}

	c.emit(outcomeEnvelope(usecase.Outcome{Kind: usecase.OutcomeSuccess, TranslatedText: "turn on the tv"}))

	if ctx.Err() == nil {
		t.Fatal("Expected the session to be cancelled")
	}
	code, text := c.closeStatus()
	if code != websocket.CloseTryAgainLater || text == "" {
		t.Errorf("Expected try-again-later close, got %d %q", code, text)
	}
}

func TestHub_AudioStartOverridesFormat(t *testing.T) {
	processor := &fakeProcessor{outcome: usecase.Outcome{Kind: usecase.OutcomeNoSpeechDetected}}
	_, url := setupTestHub(t, processor, HubConfig{})
	conn := dial(t, url)
	readEvent(t, conn)

	sendControl(t, conn, `{"event":"audio_start","data":{"sample_rate":8000}}`)
	ev := readEvent(t, conn)
	var status StatusData
	json.Unmarshal(ev.Data, &status)
	if ev.Event != EventStatus || status.Status != "listening" {
		t.Fatalf("Expected listening status, got %s %+v", ev.Event, status)
	}

	sendFrame(t, conn, []byte{0, 0})
	sendControl(t, conn, `{"event":"audio_end"}`)
	readEvent(t, conn)

	clips := processor.calls()
	if len(clips) != 1 || clips[0].Format.SampleRateHz != 8000 {
		t.Errorf("Expected 8000 Hz clip, got %+v", clips)
	}

	sendControl(t, conn, `{"event":"audio_start","data":{"sample_width":3,"channels":-1,"sample_rate":-5}}`)
	if ev := readEvent(t, conn); ev.Event != EventStatus {
		t.Errorf("Negative overrides should be ignored, got %s", ev.Event)
	}
}

func TestHub_RunStopClosesSessions(t *testing.T) {
	hub := NewHub(&fakeProcessor{}, HubConfig{}, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/ws", hub.HandleWebSocket)
	srv := httptest.NewServer(e)
	defer srv.Close()

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws")
	readEvent(t, conn)
	waitFor(t, "registration", func() bool { return hub.SessionCount() == 1 })

	cancel()

	waitFor(t, "sessions to drop", func() bool { return hub.SessionCount() == 0 })
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected the connection to be closed")
	}
}
