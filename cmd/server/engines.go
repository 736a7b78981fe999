package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/revgen/voicecmd/adapters/device"
	"github.com/revgen/voicecmd/adapters/llm"
	"github.com/revgen/voicecmd/adapters/stt"
	"github.com/revgen/voicecmd/adapters/translate"
	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/domain/repositories"
	"github.com/revgen/voicecmd/internal/config"
	"github.com/revgen/voicecmd/internal/netutil"
)

// closers run in reverse order at shutdown.
type closers []func()

func (c *closers) add(f func()) { *c = append(*c, f) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func newSpeechToText(ctx context.Context, cfg config.SpeechConfig, cl *closers, logger *zap.Logger) repositories.SpeechToText {
	switch cfg.Backend {
	case "mock":
		return stt.NewMockSpeechToText(cfg.MockTranscript, logger)
	default:
		g := stt.NewGoogleSpeechToText(ctx, logger)
		cl.add(func() { g.Close() })
		return g
	}
}

func newTranslator(ctx context.Context, cfg config.TranslationConfig, sourceLanguage string, cl *closers, logger *zap.Logger) repositories.Translator {
	switch cfg.Backend {
	case "mock":
		return translate.NewMockTranslator(logger)
	default:
		g := translate.NewGoogleTranslator(ctx, sourceLanguage, logger)
		cl.add(func() { g.Close() })
		return g
	}
}

func newReasoningEngine(ctx context.Context, cfg config.ReasoningConfig, logger *zap.Logger) (repositories.LargeLanguageModel, error) {
	if cfg.Backend == "mock" {
		return llm.NewMockLLM(logger), nil
	}

	httpClient, err := netutil.NewHTTPClient(cfg.Proxy)
	if err != nil {
		return nil, fmt.Errorf("failed to dial socks proxy %s: %w", cfg.Proxy, err)
	}
	engineConfig := llm.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		MaxTokens:  cfg.MaxTokens,
		HTTPClient: httpClient,
	}

	switch cfg.Backend {
	case "gemini":
		return llm.NewGeminiLLM(ctx, engineConfig, logger)
	default:
		return llm.NewOpenAILLM(engineConfig, logger)
	}
}

func newDeviceController(cfg config.DevicesConfig, cl *closers, logger *zap.Logger) (repositories.DeviceController, error) {
	switch cfg.Backend {
	case "memory":
		return device.NewMemoryController(logger, entities.DeviceTV, entities.DeviceModem), nil
	case "mqtt":
		c, err := device.NewMQTTController(device.MQTTConfig{
			Broker:         cfg.MQTT.Broker,
			ClientID:       cfg.MQTT.ClientID,
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			Topic:          cfg.MQTT.Topic,
			QoS:            byte(cfg.MQTT.QoS),
			PublishTimeout: cfg.MQTT.PublishTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		cl.add(c.Close)
		return c, nil
	default:
		return device.NewUnimplemented(logger), nil
	}
}
