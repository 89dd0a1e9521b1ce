package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-gazenav/pkg/hub"
	"github.com/teslashibe/go-gazenav/pkg/protocol"
	"github.com/teslashibe/go-gazenav/pkg/telemetry"
	"github.com/teslashibe/go-gazenav/pkg/tracking"
)

func notConfigured(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": what + " not configured",
	})
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// handleStatus returns the tracker's current state
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.currentStatus())
}

// handleGetTuning returns the tuning parameters
func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	if s.controller == nil {
		return notConfigured(c, "tracker")
	}
	return c.JSON(s.controller.GetTuningParams())
}

// handleSetTuning applies tuning parameters; unset fields are left alone
func (s *Server) handleSetTuning(c *fiber.Ctx) error {
	if s.controller == nil {
		return notConfigured(c, "tracker")
	}

	var params tracking.TuningParams
	if err := c.BodyParser(&params); err != nil {
		return badRequest(c, err)
	}
	s.controller.SetTuningParams(params)
	s.AddLog("status", "Tuning updated")

	return c.JSON(s.controller.GetTuningParams())
}

// TriggerRequest is the request body for /api/trigger
type TriggerRequest struct {
	Trigger string `json:"trigger"`
}

// handleTrigger sets the held gesture
func (s *Server) handleTrigger(c *fiber.Ctx) error {
	if s.controller == nil {
		return notConfigured(c, "tracker")
	}

	var req TriggerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	trigger, err := tracking.ParseTrigger(req.Trigger)
	if err != nil {
		return badRequest(c, err)
	}
	s.controller.SetTrigger(trigger)

	return c.JSON(fiber.Map{"trigger": trigger})
}

// EnableRequest is the request body for /api/enable
type EnableRequest struct {
	Enabled bool `json:"enabled"`
}

// handleEnable switches gaze navigation on or off
func (s *Server) handleEnable(c *fiber.Ctx) error {
	if s.controller == nil {
		return notConfigured(c, "tracker")
	}

	var req EnableRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	s.controller.SetEnabled(req.Enabled)

	return c.JSON(fiber.Map{"enabled": req.Enabled})
}

// handleGetCamera returns the camera settings
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.cameras == nil {
		return notConfigured(c, "camera")
	}
	return c.JSON(s.cameras.GetConfigJSON())
}

// handleSetCamera updates camera settings from a partial JSON object
func (s *Server) handleSetCamera(c *fiber.Ctx) error {
	if s.cameras == nil {
		return notConfigured(c, "camera")
	}

	params := make(map[string]interface{})
	if err := c.BodyParser(&params); err != nil {
		return badRequest(c, err)
	}
	if err := s.cameras.UpdateConfig(params); err != nil {
		return badRequest(c, err)
	}
	s.AddLog("status", "Camera settings updated")

	return c.JSON(s.cameras.GetConfigJSON())
}

// handleGetLogs returns recent log entries
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return c.JSON(s.logs)
}

// handleGetSessions returns recorded sessions
func (s *Server) handleGetSessions(c *fiber.Ctx) error {
	if s.sessions == nil {
		return notConfigured(c, "telemetry")
	}

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 1000 {
		limit = 50
	}

	sessions, err := s.sessions.RecentSessions(c.UserContext(), limit)
	if err != nil {
		s.logger.Error("list sessions failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list sessions",
		})
	}
	if sessions == nil {
		sessions = []tracking.SessionInfo{}
	}
	return c.JSON(sessions)
}

// SessionDetail is one recorded session with the intents it emitted.
type SessionDetail struct {
	tracking.SessionInfo
	IntentLog []telemetry.IntentRecord `json:"intent_log"`
}

// handleGetSession returns one session and its intents
func (s *Server) handleGetSession(c *fiber.Ctx) error {
	if s.sessions == nil {
		return notConfigured(c, "telemetry")
	}

	ctx := c.UserContext()
	id := c.Params("id")
	info, err := s.sessions.Session(ctx, id)
	if errors.Is(err, telemetry.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "session not found",
		})
	}
	if err != nil {
		s.logger.Error("load session failed", "session", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load session",
		})
	}

	intents, err := s.sessions.SessionIntents(ctx, id)
	if err != nil {
		s.logger.Error("list session intents failed", "session", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load session",
		})
	}
	if intents == nil {
		intents = []telemetry.IntentRecord{}
	}
	return c.JSON(SessionDetail{SessionInfo: info, IntentLog: intents})
}

// handleStatusWS sends the current status, then live updates
func (s *Server) handleStatusWS(c *websocket.Conn) {
	c.WriteJSON(s.currentStatus())
	hub.NewClient(s.statusHub, c).Run()
}

// handleLogsWS sends recent logs, then live entries
func (s *Server) handleLogsWS(c *websocket.Conn) {
	s.logsMu.RLock()
	for _, entry := range s.logs {
		c.WriteJSON(entry)
	}
	s.logsMu.RUnlock()

	hub.NewClient(s.logHub, c).Run()
}

func (s *Server) hubHandler(h *hub.Hub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		hub.NewClient(h, c).Run()
	}
}

// handleControlMessage handles protocol messages sent by a host on /ws/control
func (s *Server) handleControlMessage(client *hub.Client, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.logger.Debug("bad control message", "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeTrigger:
		td, err := msg.GetTriggerData()
		if err != nil {
			return
		}
		trigger, err := tracking.ParseTrigger(td.Trigger)
		if err != nil {
			s.logger.Debug("unknown trigger", "trigger", td.Trigger)
			return
		}
		if s.controller != nil {
			s.controller.SetTrigger(trigger)
		}

	case protocol.TypeEnable:
		ed, err := msg.GetEnableData()
		if err != nil {
			return
		}
		if s.controller != nil {
			s.controller.SetEnabled(ed.Enabled)
		}

	case protocol.TypePing:
		pong, err := protocol.Pong(msg)
		if err != nil || client == nil {
			return
		}
		if b, err := pong.Bytes(); err == nil {
			client.Send(hub.NewJSONMessage(b))
		}

	default:
		s.logger.Debug("ignored control message", "type", msg.Type)
	}
}
