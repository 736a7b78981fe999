package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/internal/auth"
	"github.com/revgen/voicecmd/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks

	// Utterances waiting for the processing goroutine.
	maxPendingUtterances = 2

	// DefaultMaxUtteranceBytes is about 65 seconds of 16 kHz mono PCM.
	DefaultMaxUtteranceBytes = 2 << 20
)

var upgrader = websocket.Upgrader{
	// Device clients send no Origin header.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// HubConfig holds the per-connection limits.
type HubConfig struct {
	// MaxUtteranceBytes caps the PCM buffered between two audio_end events.
	MaxUtteranceBytes int
	// Format is the PCM layout frames are assumed to have until a client
	// overrides it with audio_start.
	Format entities.AudioFormat
}

// Hub maintains the set of active streaming sessions.
type Hub struct {
	// Registered clients, keyed by session ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	processor usecase.Processor
	config    HubConfig
	logger    *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(processor usecase.Processor, config HubConfig, logger *zap.Logger) *Hub {
	if config.Format.SampleRateHz == 0 {
		config.Format = entities.StreamingFormat()
	}
	if config.MaxUtteranceBytes <= 0 {
		config.MaxUtteranceBytes = DefaultMaxUtteranceBytes
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		processor:  processor,
		config:     config,
		logger:     logger,
	}
}

// Run starts the hub's main loop. When ctx ends every session is cancelled,
// which closes its connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.sessionID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered",
				zap.String("session_id", client.sessionID),
				zap.String("device_id", client.deviceID))

		case client := <-h.unregister:
			h.mu.Lock()
			delete(h.clients, client.sessionID)
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("session_id", client.sessionID))

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				client.cancel()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			h.logger.Info("Hub stopped")
			return
		}
	}
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is one streaming session. It owns three goroutines: readPump
// collects frames, writePump sends events and processLoop runs the pipeline.
// All three stop when ctx is cancelled.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages. Never closed; writers select on ctx.
	send chan WriteData

	// Complete utterances waiting to be processed.
	utterances chan entities.AudioClip

	sessionID string
	deviceID  string

	ctx    context.Context
	cancel context.CancelFunc

	logger *zap.Logger

	mutex  sync.Mutex
	buffer []byte
	format entities.AudioFormat
	frames int

	// Close frame sent when the session ends; zero means normal closure.
	closeCode int
	closeText string
}

// HandleWebSocket upgrades the request and starts the session. When auth is
// enabled the device ID set by the auth middleware is attached to the session.
func (h *Hub) HandleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	deviceID, _ := c.Get(auth.DeviceIDKey).(string)
	if deviceID == "" {
		deviceID = "anonymous"
	}

	client := h.newClient(conn, deviceID)

	select {
	case h.register <- client:
	case <-h.done:
		client.cancel()
		conn.Close()
		return nil
	}

	client.emit(newEnvelope(EventStatus, StatusData{Status: "connected", SessionID: client.sessionID}))

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.processLoop()
	go client.readPump()

	return nil
}

func (h *Hub) newClient(conn *websocket.Conn, deviceID string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	sessionID := uuid.New().String()
	return &Client{
		hub:        h,
		conn:       conn,
		send:       make(chan WriteData, 256),
		utterances: make(chan entities.AudioClip, maxPendingUtterances),
		sessionID:  sessionID,
		deviceID:   deviceID,
		ctx:        ctx,
		cancel:     cancel,
		logger:     h.logger.With(zap.String("session_id", sessionID), zap.String("device_id", deviceID)),
		format:     h.config.Format,
	}
}

// readPump pumps messages from the websocket connection to the session buffer.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.mutex.Lock()
		discarded := len(c.buffer)
		c.buffer = nil
		c.mutex.Unlock()

		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
		c.logger.Info("Session closed", zap.Int("discarded_bytes", discarded))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			c.processBinaryAudioChunk(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps events from the session to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				c.cancel()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}

		case <-c.ctx.Done():
			code, text := c.closeStatus()
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, text),
				time.Now().Add(writeWait))
			return
		}
	}
}

// processLoop runs the pipeline on completed utterances, one at a time, in
// the order they were ended.
func (c *Client) processLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case clip := <-c.utterances:
			start := time.Now()
			out := c.hub.processor.Process(c.ctx, clip)
			if c.ctx.Err() != nil {
				// The client is gone; nobody to tell.
				return
			}
			c.logger.Info("Utterance processed",
				zap.Int("bytes", len(clip.Data)),
				zap.String("outcome", string(out.Kind)),
				zap.Duration("duration", time.Since(start)))
			c.emit(outcomeEnvelope(out))
		}
	}
}

// processMessage handles a control message from the device
func (c *Client) processMessage(message []byte) {
	msg, err := ParseControl(message)
	if err != nil {
		c.logger.Warn("Failed to parse message", zap.Error(err))
		c.emit(errorEnvelope(err.Error(), ErrorTypeBadMessage))
		return
	}

	switch msg.Event {
	case EventAudioStart, EventListeningStart:
		c.handleAudioStart(msg.Data)
	case EventAudioEnd, EventListeningEnd:
		c.handleAudioEnd()
	case EventPing:
		c.emit(newEnvelope(EventPong, nil))
	default:
		c.logger.Warn("Unknown message type", zap.String("event", string(msg.Event)))
		c.emit(errorEnvelope("unknown event "+string(msg.Event), ErrorTypeBadMessage))
	}
}

// processBinaryAudioChunk appends PCM to the utterance buffer.
func (c *Client) processBinaryAudioChunk(data []byte) {
	c.mutex.Lock()
	if len(c.buffer)+len(data) > c.hub.config.MaxUtteranceBytes {
		size := len(c.buffer) + len(data)
		c.buffer = nil
		c.frames = 0
		c.mutex.Unlock()

		c.logger.Warn("Utterance too long, buffer reset", zap.Int("bytes", size))
		c.emit(errorEnvelope("utterance exceeds the maximum length", ErrorTypeUtteranceTooLong))
		return
	}
	c.buffer = append(c.buffer, data...)
	c.frames++
	frames := c.frames
	c.mutex.Unlock()

	c.logger.Debug("Received binary audio chunk",
		zap.Int("size", len(data)),
		zap.Int("frames", frames))
}

// handleAudioStart resets the buffer and optionally changes the PCM format.
func (c *Client) handleAudioStart(raw json.RawMessage) {
	format := c.hub.config.Format
	if len(raw) > 0 {
		var data StartData
		if err := json.Unmarshal(raw, &data); err != nil {
			c.emit(errorEnvelope("invalid audio_start data", ErrorTypeBadMessage))
			return
		}
		f, err := data.Format(format)
		if err != nil {
			c.emit(errorEnvelope(err.Error(), ErrorTypeInvalidInput))
			return
		}
		format = f
	}

	c.mutex.Lock()
	c.buffer = nil
	c.frames = 0
	c.format = format
	c.mutex.Unlock()

	c.emit(newEnvelope(EventStatus, StatusData{Status: "listening", SessionID: c.sessionID}))
}

// handleAudioEnd hands the buffered utterance to processLoop and resets the buffer.
func (c *Client) handleAudioEnd() {
	c.mutex.Lock()
	clip := entities.AudioClip{Data: c.buffer, Format: c.format}
	frames := c.frames
	c.buffer = nil
	c.frames = 0
	c.mutex.Unlock()

	c.logger.Info("Utterance ended", zap.Int("frames", frames), zap.Int("bytes", len(clip.Data)))

	select {
	case c.utterances <- clip:
	default:
		c.emit(errorEnvelope("previous utterances are still being processed", ErrorTypeBusy))
	}
}

// emit queues an event for writePump. Events for a closed session are
// dropped. A full send buffer ends the session so the client sees a close
// frame instead of a missing event.
func (c *Client) emit(env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		c.logger.Error("Failed to marshal event", zap.Error(err))
		return
	}

	select {
	case <-c.ctx.Done():
		return
	default:
	}

	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	case <-c.ctx.Done():
	default:
		c.logger.Warn("Send buffer full, closing session", zap.String("event", string(env.Event)))
		c.closeWith(websocket.CloseTryAgainLater, "send buffer full")
	}
}

// closeWith cancels the session and records the close frame writePump sends.
func (c *Client) closeWith(code int, text string) {
	c.mutex.Lock()
	if c.closeCode == 0 {
		c.closeCode, c.closeText = code, text
	}
	c.mutex.Unlock()
	c.cancel()
}

func (c *Client) closeStatus() (int, string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closeCode == 0 {
		return websocket.CloseNormalClosure, ""
	}
	return c.closeCode, c.closeText
}
