// Package web serves the operator dashboard: four quadrant panes, one
// status line and one "Sort Olives" button.
package web

import (
	"bytes"
	_ "embed"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-olivesort/internal/log"
	"github.com/teslashibe/go-olivesort/pkg/hub"
	"github.com/teslashibe/go-olivesort/pkg/protocol"
	"github.com/teslashibe/go-olivesort/pkg/quadrant"
	"github.com/teslashibe/go-olivesort/pkg/sorter"
)

//go:embed static/index.html
var indexHTML []byte

// jpegQuality for pane images.
const jpegQuality = 85

// Server is the operator dashboard server
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	mu      sync.RWMutex
	state   protocol.StateData
	last    *protocol.CycleData
	panes   [quadrant.Count][]byte
	version uint64

	statusHub *hub.Hub

	// OnSort starts a sorting cycle. It returns the cycle ID, or false
	// if a cycle is already running.
	OnSort func() (string, bool)
}

// NewServer creates a new dashboard server
func NewServer(port string) *Server {
	s := &Server{
		port:      port,
		logger:    log.Component("web"),
		statusHub: hub.New("status"),
		state: protocol.StateData{
			State: sorter.Idle.String(),
		},
	}

	app := fiber.New(fiber.Config{
		AppName:               "Olive Sorter 2x2",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	app.Get("/", s.handleIndex)

	api := app.Group("/api")
	api.Post("/sort", s.handleSort)
	api.Get("/status", s.handleStatus)
	api.Get("/quadrants/:pos", s.handleQuadrant)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve starts the hub and blocks serving HTTP on ln.
func (s *Server) Serve(ln net.Listener) error {
	go s.statusHub.Run()
	s.logger.Info("dashboard listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// StartAsync binds the dashboard port and serves in a goroutine. A bind
// failure is returned to the caller.
func (s *Server) StartAsync() error {
	ln, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return fmt.Errorf("listen on :%s: %w", s.port, err)
	}
	go func() {
		if err := s.Serve(ln); err != nil {
			s.logger.Error("web server error", "error", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	s.statusHub.Stop()
	return s.app.Shutdown()
}

// SetState implements sorter.Display.
func (s *Server) SetState(cycleID string, st sorter.State) {
	s.mu.Lock()
	s.state.State = st.String()
	s.state.Busy = st.Busy()
	s.state.CycleID = cycleID
	snapshot := s.state
	s.mu.Unlock()

	s.broadcast(protocol.NewStateMessage(snapshot))
}

// SetStatus implements sorter.Display.
func (s *Server) SetStatus(text string) {
	s.mu.Lock()
	s.state.Status = text
	snapshot := s.state
	s.mu.Unlock()

	s.broadcast(protocol.NewStateMessage(snapshot))
}

// ShowQuadrants implements sorter.Display. Panes are encoded once here
// and served from memory.
func (s *Server) ShowQuadrants(cycleID string, set quadrant.Set) {
	var panes [quadrant.Count][]byte
	for _, pos := range quadrant.Positions {
		if set[pos] == nil {
			continue
		}
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, set[pos], imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
			s.logger.Error("encode pane failed", "quadrant", pos.String(), "error", err)
			continue
		}
		panes[pos] = buf.Bytes()
	}

	s.mu.Lock()
	s.panes = panes
	s.version++
	version := s.version
	s.mu.Unlock()

	keys := make([]string, 0, quadrant.Count)
	for _, pos := range quadrant.Positions {
		keys = append(keys, pos.String())
	}
	s.broadcast(protocol.NewQuadrantsMessage(protocol.QuadrantsData{
		CycleID: cycleID,
		Version: version,
		Panes:   keys,
	}))
}

// CycleDone records a finished cycle and pushes its summary.
func (s *Server) CycleDone(res sorter.Result) {
	data := protocol.CycleData{
		ID:         res.ID,
		OK:         res.OK,
		Status:     res.Status,
		Labels:     res.Labels,
		Scores:     res.Scores,
		Command:    res.Command.String(),
		DurationMs: res.Duration().Milliseconds(),
	}

	s.mu.Lock()
	s.last = &data
	s.state.State = sorter.Idle.String()
	s.state.Busy = false
	s.state.Status = res.Status
	s.state.CycleID = res.ID
	snapshot := s.state
	s.mu.Unlock()

	s.broadcast(protocol.NewCycleMessage(data))
	s.broadcast(protocol.NewStateMessage(snapshot))
}

// State returns the current dashboard state.
func (s *Server) State() protocol.StateData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Server) broadcast(msg *protocol.Message, err error) {
	if err != nil {
		s.logger.Error("build message failed", "error", err)
		return
	}
	if err := s.statusHub.BroadcastJSON(msg); err != nil {
		s.logger.Error("encode message failed", "type", msg.Type, "error", err)
	}
}
