package server

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wfunc/impostor/logger"
	"github.com/wfunc/impostor/monitor"
	"github.com/wfunc/impostor/room"
	"github.com/wfunc/impostor/services"
	"github.com/wfunc/impostor/session"
)

const requestTimeout = 5 * time.Second

type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	rooms          *services.RoomService
	roomManager    *room.Manager
	sessionManager *session.Manager
	monitor        *monitor.Monitor
	heartbeat      time.Duration
	router         *gin.Engine
	httpServer     *http.Server
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
}

// NewGameServer wires the HTTP API and the websocket endpoint. heartbeat is the
// interval clients are expected to ping at; a websocket silent for twice that is dropped.
func NewGameServer(addr string, rooms *services.RoomService, roomManager *room.Manager,
	sessionManager *session.Manager, mon *monitor.Monitor, heartbeat time.Duration) *GameServer {
	s := &GameServer{
		addr:           addr,
		rooms:          rooms,
		roomManager:    roomManager,
		sessionManager: sessionManager,
		monitor:        mon,
		heartbeat:      heartbeat,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *GameServer) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), s.monitor.Middleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": s.roomManager.Count(), "sessions": s.sessionManager.Count()})
	})
	r.GET("/metrics", gin.WrapH(s.monitor.Handler()))
	r.GET("/debug/vars", gin.WrapH(expvar.Handler()))
	r.GET("/ws", s.handleWebSocket)

	api := r.Group("/api/rooms")
	{
		api.POST("/create", s.handleCreate)
		api.POST("/join", s.handleJoin)
		api.POST("/leave", s.handleLeave)
		api.POST("/heartbeat", s.handleHeartbeat)
		api.POST("/word", s.handleAddWord)
		api.POST("/config", s.handleConfig)
		api.POST("/kick", s.handleKick)
		api.POST("/close", s.handleClose)
		api.GET("/poll", s.handlePoll)
		api.GET("/:roomId/leaderboard", s.handleLeaderboard)

		round := api.Group("/round")
		round.POST("/start", s.handleStartRound)
		round.POST("/open-vote", s.handleOpenVote)
		round.POST("/vote", s.handleVote)
		round.POST("/continue", s.handleContinue)
		round.POST("/guess", s.handleGuess)
	}
	return r
}

// Handler exposes the router, mainly for httptest.
func (s *GameServer) Handler() http.Handler {
	return s.router
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *GameServer) Start() error {
	logger.Log.Infof("Game server listening on %s", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and closes every websocket.
func (s *GameServer) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.shutdownChan) })
	err := s.httpServer.Shutdown(ctx)
	// hijacked websocket connections are not tracked by http.Server
	for _, sess := range s.sessionManager.All() {
		sess.Close()
	}
	return err
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Log.Debugw("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}
