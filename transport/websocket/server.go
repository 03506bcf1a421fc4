package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/usecase"
)

type coordinator interface {
	CreateRoom(code, name, connID string) (*usecase.Event, error)
	JoinRoom(code, name, connID string) (*usecase.Event, error)
	ApplyMove(connID string, cell int) (*usecase.Event, error)
	ResetRoom(connID string) (*usecase.Event, error)
	QueryState(code string) (entity.Snapshot, error)
	Disconnect(connID string) (*usecase.Event, bool)
}

type resultRecorder interface {
	Record(ctx context.Context, result *entity.Result) error
}

type handler func(ctx context.Context, c *client, msg *Message) error

type Options struct {
	AllowedOrigins []string

	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
	SendQueue  int
}

func DefaultOptions() Options {
	return Options{
		PingPeriod: 25 * time.Second,
		PongWait:   30 * time.Second,
		WriteWait:  10 * time.Second,
		SendQueue:  64,
	}
}

// Server - the connection gateway. It is the only place that maps connection ids to
// live sockets; everything about rooms is asked of the coordinator.
type Server struct {
	logger  *slog.Logger
	rooms   coordinator
	results resultRecorder
	metrics *metrics.Metrics

	opts     Options
	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[string]*client

	handlers map[string]handler

	recording sync.WaitGroup
}

func New(logger *slog.Logger, rooms coordinator, results resultRecorder, m *metrics.Metrics, opts Options) *Server {
	defaults := DefaultOptions()
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = defaults.PingPeriod
	}
	if opts.PongWait <= 0 {
		opts.PongWait = defaults.PongWait
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = defaults.WriteWait
	}
	if opts.SendQueue <= 0 {
		opts.SendQueue = defaults.SendQueue
	}

	server := &Server{
		logger:  logger.With("component", "websocket"),
		rooms:   rooms,
		results: results,
		metrics: m,
		opts:    opts,
		clients: make(map[string]*client),

		handlers: make(map[string]handler),
	}

	server.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     server.checkOrigin,
	}

	server.handlers[actionCreateGame] = server.handleCreateGame
	server.handlers[actionJoinGame] = server.handleJoinGame
	server.handlers[actionMakeMove] = server.handleMakeMove
	server.handlers[actionResetGame] = server.handleResetGame
	server.handlers[actionGetGameState] = server.handleGetGameState

	return server
}

// Start - serves /ws and /health on port until ctx is done.
func (that *Server) Start(ctx context.Context, port string, health http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", that)
	mux.Handle("/health", health)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown websocket server", "error", err)
		}
		that.CloseAll()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// ServeHTTP - upgrades the request and serves the connection until it closes.
func (that *Server) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "ServeHTTP")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", "error", err, "origin", req.Header.Get("Origin"))
		return
	}

	c := newClient(pkg.NewConnectionID(), conn, that.opts.SendQueue)
	that.register(c)

	log.Info("client connected", "connID", c.id, "remote", req.RemoteAddr)

	go that.writePump(c)
	that.readPump(req.Context(), c)
}

// CloseAll - drops every live connection; their disconnects run as usual.
func (that *Server) CloseAll() {
	that.clientsMu.RLock()
	defer that.clientsMu.RUnlock()

	for _, c := range that.clients {
		c.close()
	}
}

// WaitResults - blocks until every finished round handed to the store was written or
// timed out.
func (that *Server) WaitResults() {
	that.recording.Wait()
}

// CloseRoom - tells the still connected members of an evicted room that it is gone.
func (that *Server) CloseRoom(event *usecase.Event) {
	that.metrics.Evicted(event.Reason)

	that.broadcast(event.Recipients, actionRoomClosed, RoomClosedPayload{
		RoomCode: event.Code,
		Reason:   event.Reason,
	})
}

func (that *Server) checkOrigin(req *http.Request) bool {
	if len(that.opts.AllowedOrigins) == 0 {
		return true
	}

	origin := req.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range that.opts.AllowedOrigins {
		if strings.EqualFold(strings.TrimSpace(allowed), origin) {
			return true
		}
	}

	return false
}

func (that *Server) register(c *client) {
	that.clientsMu.Lock()
	that.clients[c.id] = c
	that.clientsMu.Unlock()

	that.metrics.ConnectionsActive.Inc()
}

// unregister - forgets the connection and runs the disconnect lifecycle for it.
func (that *Server) unregister(c *client) {
	that.clientsMu.Lock()
	_, ok := that.clients[c.id]
	delete(that.clients, c.id)
	that.clientsMu.Unlock()

	if !ok {
		return
	}

	that.metrics.ConnectionsActive.Dec()
	that.logger.Info("client disconnected", "connID", c.id)

	event, ok := that.rooms.Disconnect(c.id)
	if !ok {
		return
	}

	if event.Removed {
		that.CloseRoom(event)
		return
	}

	that.broadcast(event.Recipients, actionPlayerDisconnected, GamePayload{Game: event.Snapshot})
}

func (that *Server) lookup(connID string) (*client, bool) {
	that.clientsMu.RLock()
	defer that.clientsMu.RUnlock()

	c, ok := that.clients[connID]

	return c, ok
}

func (that *Server) unicast(connID, action string, payload any) {
	that.broadcast([]string{connID}, action, payload)
}

// broadcast - sends one encoded message to every listed connection still alive.
func (that *Server) broadcast(connIDs []string, action string, payload any) {
	if len(connIDs) == 0 {
		return
	}

	data, err := encode(action, payload)
	if err != nil {
		that.logger.Error("failed to encode message", "action", action, "error", err)
		return
	}

	for _, connID := range connIDs {
		c, ok := that.lookup(connID)
		if !ok {
			continue
		}

		if !c.enqueue(data) {
			that.logger.Warn("message not queued, connection is closing", "connID", connID, "action", action)
		}
	}
}
