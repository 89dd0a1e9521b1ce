// Package web provides the dashboard and control API for the gaze navigator
package web

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-gazenav/pkg/camera"
	"github.com/teslashibe/go-gazenav/pkg/debug"
	"github.com/teslashibe/go-gazenav/pkg/hub"
	"github.com/teslashibe/go-gazenav/pkg/protocol"
	"github.com/teslashibe/go-gazenav/pkg/telemetry"
	"github.com/teslashibe/go-gazenav/pkg/tracking"
)

//go:embed static
var staticFiles embed.FS

// Controller is the part of the tracker the dashboard drives.
type Controller interface {
	Status() tracking.Status
	SetTrigger(trigger tracking.Trigger)
	SetEnabled(enabled bool)
	GetTuningParams() tracking.TuningParams
	SetTuningParams(params tracking.TuningParams)
}

// SessionLister returns recorded gesture sessions and their intents.
// Session reports telemetry.ErrNotFound for unknown IDs.
type SessionLister interface {
	RecentSessions(ctx context.Context, limit int) ([]tracking.SessionInfo, error)
	Session(ctx context.Context, id string) (tracking.SessionInfo, error)
	SessionIntents(ctx context.Context, sessionID string) ([]telemetry.IntentRecord, error)
}

var _ SessionLister = (*telemetry.Store)(nil)

// LogEntry represents a log line for the dashboard
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // status, session, intent, error
	Message string `json:"message"`
}

const maxLogs = 500

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	// Collaborators, set before Start
	controller Controller
	cameras    *camera.Manager
	sessions   SessionLister

	// Latest tracker status
	status   tracking.Status
	statusMu sync.RWMutex

	// Log buffer (last 500 entries)
	logs   []LogEntry
	logsMu sync.RWMutex

	// Hubs for websocket broadcast (thread-safe!)
	statusHub  *hub.Hub
	logHub     *hub.Hub
	intentHub  *hub.Hub
	cameraHub  *hub.Hub
	controlHub *hub.Hub

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new web dashboard server
func NewServer(port string) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		port:       port,
		logger:     slog.Default().With("component", "web"),
		logs:       make([]LogEntry, 0, maxLogs),
		statusHub:  hub.New("status"),
		logHub:     hub.New("logs"),
		intentHub:  hub.New("intents"),
		cameraHub:  hub.New("camera"),
		controlHub: hub.New("control"),
		ctx:        ctx,
		cancel:     cancel,
	}
	s.controlHub.OnMessage(s.handleControlMessage)

	app := fiber.New(fiber.Config{
		AppName:               "Gaze Navigator",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	if debug.Enabled {
		app.Use(logger.New())
	}

	// CORS for host add-ons served from other origins
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/tuning", s.handleGetTuning)
	api.Put("/tuning", s.handleSetTuning)
	api.Post("/trigger", s.handleTrigger)
	api.Post("/enable", s.handleEnable)
	api.Get("/camera", s.handleGetCamera)
	api.Put("/camera", s.handleSetCamera)
	api.Get("/logs", s.handleGetLogs)
	api.Get("/sessions", s.handleGetSessions)
	api.Get("/sessions/:id", s.handleGetSession)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))
	app.Get("/ws/intents", websocket.New(s.hubHandler(s.intentHub)))
	app.Get("/ws/camera", websocket.New(s.hubHandler(s.cameraHub)))
	app.Get("/ws/control", websocket.New(s.hubHandler(s.controlHub)))

	// Dashboard page
	static, _ := fs.Sub(staticFiles, "static")
	app.Use("/", filesystem.New(filesystem.Config{Root: http.FS(static)}))

	s.app = app
	return s
}

// SetController connects the tracker.
func (s *Server) SetController(c Controller) {
	s.controller = c
}

// SetCameraManager exposes camera settings on /api/camera.
func (s *Server) SetCameraManager(m *camera.Manager) {
	s.cameras = m
}

// SetSessionLister exposes recorded sessions on /api/sessions.
func (s *Server) SetSessionLister(l SessionLister) {
	s.sessions = l
}

// App returns the underlying fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the web server
func (s *Server) Start() error {
	s.logger.Info("web dashboard listening", "url", "http://localhost:"+s.port)

	// Start all hubs
	for _, h := range []*hub.Hub{s.statusHub, s.logHub, s.intentHub, s.cameraHub, s.controlHub} {
		go h.Run(s.ctx)
	}

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server error", "error", err)
		}
	}()
}

// Apply implements tracking.IntentSink: intents go to dashboard viewers and
// to hosts connected on the control socket.
func (s *Server) Apply(_ context.Context, intent tracking.Intent) error {
	status := s.currentStatus()
	msg, err := protocol.NewIntentMessage(IntentData(intent, status.SessionID))
	if err != nil {
		return err
	}
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	s.intentHub.Broadcast(hub.NewJSONMessage(data))
	s.controlHub.Broadcast(hub.NewJSONMessage(data))

	s.AddLog("intent", intent.String())
	return nil
}

// UpdateStatus implements tracking.StateUpdater.
func (s *Server) UpdateStatus(status tracking.Status) {
	s.statusMu.Lock()
	changed := s.status.State != status.State ||
		s.status.Trigger != status.Trigger ||
		s.status.Enabled != status.Enabled ||
		s.status.Sensitivity != status.Sensitivity
	s.status = status
	s.statusMu.Unlock()

	// Broadcast via hub (thread-safe!)
	s.statusHub.BroadcastJSON(status)

	// Hosts only care about transitions
	if changed {
		if msg, err := protocol.NewStatusMessage(StatusData(status)); err == nil {
			if data, err := msg.Bytes(); err == nil {
				s.controlHub.Broadcast(hub.NewJSONMessage(data))
			}
		}
	}
}

// AddLog adds a log entry and broadcasts to clients
func (s *Server) AddLog(logType, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    logType,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	s.logHub.BroadcastJSON(entry)
}

// SendCameraFrame sends a JPEG preview to all connected clients
func (s *Server) SendCameraFrame(jpegData []byte) {
	if s.cameraHub.ClientCount() == 0 {
		return
	}
	s.cameraHub.BroadcastBinary(jpegData)
}

func (s *Server) currentStatus() tracking.Status {
	if s.controller != nil {
		return s.controller.Status()
	}
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	s.cancel()
	return s.app.Shutdown()
}

// IntentData converts an intent to its wire form.
func IntentData(in tracking.Intent, sessionID string) protocol.IntentData {
	return protocol.IntentData{
		Kind:      in.Kind.String(),
		Step:      in.Step,
		Delta:     in.Delta,
		SessionID: sessionID,
	}
}

// StatusData converts a tracker status to its wire form.
func StatusData(st tracking.Status) protocol.StatusData {
	return protocol.StatusData{
		Enabled:     st.Enabled,
		State:       st.State,
		Trigger:     st.Trigger.String(),
		Sensitivity: st.Sensitivity,
		SessionID:   st.SessionID,
	}
}
