package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/internal/auth"
	"github.com/revgen/voicecmd/internal/config"
	"github.com/revgen/voicecmd/internal/websocket"
	"github.com/revgen/voicecmd/usecase"
)

// AudioField is the multipart field carrying the upload.
const AudioField = "audio"

type handlers struct {
	processor usecase.Processor
	cfg       config.ServerConfig
	logger    *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(
	e *echo.Echo,
	processor usecase.Processor,
	hub *websocket.Hub,
	authn *auth.Authenticator,
	cfg config.ServerConfig,
	logger *zap.Logger,
) {
	h := &handlers{processor: processor, cfg: cfg, logger: logger}

	// Health check
	e.GET("/health", h.health)

	e.POST("/process", h.process,
		middleware.BodyLimit(fmt.Sprintf("%dB", cfg.MaxUploadBytes)),
		authn.Middleware())

	// WebSocket endpoint, authenticated before the upgrade
	e.GET("/ws", hub.HandleWebSocket, authn.Middleware())

	e.GET("/swagger/*", echo.WrapHandler(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	)))
}

// health reports liveness.
//
// @Summary  Health check
// @Tags     health
// @Produce  json
// @Success  200  {object}  HealthResponse
// @Router   /health [get]
func (h *handlers) health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   h.cfg.ServiceName,
	})
}

// process transcribes and translates one uploaded clip.
//
// @Summary      Process a recorded voice command
// @Description  Transcribes the uploaded clip, translates the transcript and,
// @Description  when command resolution is enabled, runs the resulting command.
// @Tags         process
// @Accept       multipart/form-data
// @Produce      json
// @Param        audio  formData  file  true  "Audio clip (wav, mp3 or m4a)"
// @Param        Authorization  header  string  false  "Bearer device token when auth is enabled"
// @Success      200  {object}  ProcessResponse
// @Failure      400  {object}  ErrorResponse  "Missing file, invalid format or no speech"
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse  "Upstream engine failure"
// @Router       /process [post]
func (h *handlers) process(c echo.Context) error {
	fh, err := c.FormFile(AudioField)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: usecase.ReasonMissingAudio})
	}

	f, err := fh.Open()
	if err != nil {
		h.logger.Error("Failed to open upload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: usecase.ReasonMissingAudio})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.logger.Error("Failed to read upload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: usecase.ReasonMissingAudio})
	}

	ctx := c.Request().Context()
	if h.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.RequestTimeout)
		defer cancel()
	}

	out := h.processor.Process(ctx, entities.AudioClip{
		Data:     data,
		Filename: fh.Filename,
		Format:   entities.AudioFormat{Encoding: entities.EncodingContainer},
	})

	status, body := renderOutcome(out)
	h.logger.Info("Processed upload",
		zap.String("filename", fh.Filename),
		zap.Int("bytes", len(data)),
		zap.String("outcome", string(out.Kind)),
		zap.Int("status", status))

	return c.JSON(status, body)
}
