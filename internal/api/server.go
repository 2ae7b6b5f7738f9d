// Package api exposes the bot's state over a read-only HTTP interface plus a
// single login endpoint. It never mutates strategy or broker state.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"market-structure-bot/config"
	"market-structure-bot/internal/analysis"
	"market-structure-bot/internal/annotation"
	"market-structure-bot/internal/auth"
	"market-structure-bot/internal/broker"
	"market-structure-bot/internal/events"
)

// Server hosts the HTTP API.
type Server struct {
	cfg         config.ServerConfig
	engine      *analysis.StructureEngine
	paperBroker *broker.PaperBroker
	annotator   *annotation.Annotator
	authService *auth.Service // nil when auth is disabled
	signalLog   *signalLog
	httpServer  *http.Server
	logger      zerolog.Logger
	startedAt   time.Time
}

// NewServer builds the server and subscribes the signal log to the bus.
func NewServer(cfg config.ServerConfig, engine *analysis.StructureEngine, paperBroker *broker.PaperBroker, annotator *annotation.Annotator, authService *auth.Service, bus *events.EventBus, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:         cfg,
		engine:      engine,
		paperBroker: paperBroker,
		annotator:   annotator,
		authService: authService,
		signalLog:   newSignalLog(100),
		logger:      logger.With().Str("component", "APIServer").Logger(),
		startedAt:   time.Now().UTC(),
	}
	bus.Subscribe(events.EventSignalGenerated, s.signalLog.record)
	bus.Subscribe(events.EventOrderPlaced, s.signalLog.record)
	bus.Subscribe(events.EventOrderRejected, s.signalLog.record)
	return s
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if s.cfg.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(s.cfg.AllowedOrigins, ",")
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	v1 := r.Group("/api/v1")
	v1.GET("/health", s.handleHealth)

	if s.authService != nil {
		v1.POST("/auth/login", s.handleLogin)
	}

	protected := v1.Group("")
	if s.authService != nil {
		protected.Use(auth.Middleware(s.authService))
	}
	protected.GET("/status", s.handleStatus)
	protected.GET("/structure", s.handleStructure)
	protected.GET("/bos", s.handleBos)
	protected.GET("/markers", s.handleMarkers)
	protected.GET("/positions", s.handlePositions)
	protected.GET("/account", s.handleAccount)
	protected.GET("/signals", s.handleSignals)

	return r
}

// Start runs the HTTP server in a background goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router(),
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Second,
	}

	go func() {
		s.logger.Info().Str("addr", addr).Msg("API server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
