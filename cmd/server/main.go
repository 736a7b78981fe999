package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	_ "github.com/revgen/voicecmd/docs"
	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/internal/action"
	"github.com/revgen/voicecmd/internal/api"
	"github.com/revgen/voicecmd/internal/auth"
	"github.com/revgen/voicecmd/internal/config"
	"github.com/revgen/voicecmd/internal/credentials"
	"github.com/revgen/voicecmd/internal/logging"
	"github.com/revgen/voicecmd/internal/websocket"
	"github.com/revgen/voicecmd/usecase"
)

func main() {
	config.RegisterFlags(pflag.CommandLine)
	pflag.Parse()

	cfg, err := config.Load(pflag.CommandLine)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if _, err := credentials.Materialize(cfg.Credentials, logger); err != nil {
		logger.Fatal("Failed to prepare credentials", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cl closers
	defer cl.run()

	// Initialize adapters
	speechToText := newSpeechToText(ctx, cfg.Speech, &cl, logger)
	translator := newTranslator(ctx, cfg.Translation, cfg.Pipeline.SourceLanguage, &cl, logger)

	var resolver *usecase.CommandResolver
	if cfg.Pipeline.ResolveCommands {
		engine, err := newReasoningEngine(ctx, cfg.Reasoning, logger)
		if err != nil {
			logger.Fatal("Failed to create reasoning engine", zap.Error(err))
		}
		controller, err := newDeviceController(cfg.Devices, &cl, logger)
		if err != nil {
			logger.Fatal("Failed to create device controller", zap.Error(err))
		}
		registry, err := action.NewDefaultRegistry(controller)
		if err != nil {
			logger.Fatal("Failed to build action registry", zap.Error(err))
		}
		resolver = usecase.NewCommandResolver(engine, registry, cfg.Reasoning.SystemPrompt, logger)
	}

	pipeline := usecase.NewPipeline(speechToText, translator, resolver, usecase.PipelineConfig{
		SourceLanguage:    cfg.Pipeline.SourceLanguage,
		TargetLanguage:    cfg.Pipeline.TargetLanguage,
		SampleRate:        cfg.Pipeline.SampleRate,
		AllowedExtensions: cfg.Pipeline.AllowedExtensions,
	}, logger)
	processor := pipeline.CommandMode()

	hub := websocket.NewHub(processor, websocket.HubConfig{
		MaxUtteranceBytes: cfg.Server.MaxUtteranceBytes,
		Format:            entities.StreamingFormat(),
	}, logger)
	go hub.Run(ctx)

	authn := auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	api.InitRoutes(e, processor, hub, authn, cfg.Server, logger)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("addr", addr),
		zap.String("source_language", cfg.Pipeline.SourceLanguage),
		zap.String("target_language", cfg.Pipeline.TargetLanguage),
		zap.Bool("resolve_commands", cfg.Pipeline.ResolveCommands),
		zap.String("reasoning_backend", cfg.Reasoning.Backend),
		zap.String("devices_backend", cfg.Devices.Backend),
		zap.Bool("auth", authn.Enabled()))

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
