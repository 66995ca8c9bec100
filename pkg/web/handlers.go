package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-olivesort/pkg/hub"
	"github.com/teslashibe/go-olivesort/pkg/protocol"
	"github.com/teslashibe/go-olivesort/pkg/quadrant"
)

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	protocol.StateData
	LastCycle *protocol.CycleData `json:"last_cycle,omitempty"`
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.Send(indexHTML)
}

// handleSort dispatches one cycle to the worker.
func (s *Server) handleSort(c *fiber.Ctx) error {
	if s.OnSort == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "sorter not configured",
		})
	}

	id, ok := s.OnSort()
	if !ok {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "sorting cycle already running",
		})
	}

	s.logger.Info("sort requested", "cycle", id)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"cycle_id": id,
	})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.mu.RLock()
	resp := StatusResponse{StateData: s.state, LastCycle: s.last}
	s.mu.RUnlock()
	return c.JSON(resp)
}

// handleQuadrant serves the latest JPEG crop for one pane.
func (s *Server) handleQuadrant(c *fiber.Ctx) error {
	pos, ok := quadrant.ParsePosition(c.Params("pos"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown quadrant",
		})
	}

	s.mu.RLock()
	data := s.panes[pos]
	s.mu.RUnlock()

	if data == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no capture yet",
		})
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Type("jpg")
	return c.Send(data)
}

// handleStatusWS pushes state, quadrant and cycle messages. The client
// gets the current state first and may send pings.
func (s *Server) handleStatusWS(conn *websocket.Conn) {
	var initial []hub.Message
	if msg, err := protocol.NewStateMessage(s.State()); err == nil {
		if data, err := msg.Bytes(); err == nil {
			initial = append(initial, hub.NewJSONMessage(data))
		}
	}

	client := hub.NewClient(s.statusHub, conn, initial...)
	client.OnText = func(data []byte) {
		s.handlePing(client, data)
	}
	client.Run()
}

func (s *Server) handlePing(client *hub.Client, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil || msg.Type != protocol.TypePing {
		return
	}

	var ping protocol.PingData
	if err := msg.ParseData(&ping); err != nil {
		return
	}

	pong, err := protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli())
	if err != nil {
		return
	}
	out, err := pong.Bytes()
	if err != nil {
		return
	}
	s.statusHub.SendTo(client, hub.NewJSONMessage(out))
}
