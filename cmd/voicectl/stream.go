package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/revgen/voicecmd/internal/audio"
)

type event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func runStream(args []string, logger *zap.Logger) error {
	fs := pflag.NewFlagSet("stream", pflag.ExitOnError)
	server := fs.StringP("server", "s", "ws://localhost:8080/ws", "WebSocket URL")
	file := fs.StringP("file", "f", "", "WAV file whose PCM is streamed")
	token := fs.StringP("token", "t", os.Getenv("VOICECMD_TOKEN"), "Bearer device token")
	frameMs := fs.Int("frame-ms", 100, "Audio per binary frame in milliseconds")
	realtime := fs.Bool("realtime", false, "Pace frames at playback speed")
	wait := fs.Duration("wait", 60*time.Second, "How long to wait for the result")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("--file is required")
	}
	if _, err := url.Parse(*server); err != nil {
		return err
	}

	container, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	hdr, pcm, err := audio.ExtractPCM(container)
	if err != nil {
		return err
	}

	headers := http.Header{}
	if *token != "" {
		headers.Add("Authorization", "Bearer "+*token)
	}

	logger.Info("Connecting", zap.String("url", *server))
	conn, _, err := websocket.DefaultDialer.Dial(*server, headers)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	events := make(chan event)
	done := make(chan error, 1)
	go func() {
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				done <- err
				return
			}
			var ev event
			if err := json.Unmarshal(payload, &ev); err != nil {
				logger.Warn("Ignoring malformed event", zap.Error(err))
				continue
			}
			events <- ev
		}
	}()

	start := map[string]interface{}{
		"event": "audio_start",
		"data": map[string]int{
			"sample_rate":  hdr.SampleRateHz,
			"channels":     hdr.ChannelCount,
			"sample_width": hdr.BitDepth / 8,
		},
	}
	if err := conn.WriteJSON(start); err != nil {
		return err
	}

	bytesPerMs := hdr.SampleRateHz * hdr.ChannelCount * (hdr.BitDepth / 8) / 1000
	frameSize := bytesPerMs * *frameMs
	if frameSize <= 0 {
		frameSize = len(pcm)
	}

	frames := 0
	for offset := 0; offset < len(pcm); offset += frameSize {
		end := offset + frameSize
		if end > len(pcm) {
			end = len(pcm)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, pcm[offset:end]); err != nil {
			return err
		}
		frames++
		if *realtime {
			time.Sleep(time.Duration(*frameMs) * time.Millisecond)
		}
	}

	if err := conn.WriteJSON(map[string]string{"event": "audio_end"}); err != nil {
		return err
	}
	logger.Info("Utterance sent", zap.Int("frames", frames), zap.Int("bytes", len(pcm)))

	timeout := time.After(*wait)
	for {
		select {
		case ev := <-events:
			switch ev.Event {
			case "transcription", "error":
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return printJSON(ev.Data)
			default:
				logger.Info("Event", zap.String("event", ev.Event), zap.ByteString("data", ev.Data))
			}
		case err := <-done:
			return fmt.Errorf("connection closed before a result arrived: %w", err)
		case <-timeout:
			return fmt.Errorf("no result after %s", *wait)
		}
	}
}
