package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"market-structure-bot/internal/auth"
	"market-structure-bot/internal/events"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	resp, err := s.authService.Login(req.Username, req.Password)
	if err != nil {
		if err == auth.ErrInvalidCredentials {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleStatus(c *gin.Context) {
	snap := s.engine.Snapshot()
	series := s.engine.Series()
	account := s.paperBroker.Account()

	c.JSON(http.StatusOK, gin.H{
		"symbol":           series.Symbol(),
		"interval":         series.Interval(),
		"bars":             snap.BarCount,
		"pivots":           len(snap.Pivots),
		"structure_points": len(snap.Structure),
		"bos_events":       len(snap.BosEvents),
		"balance":          account.Balance,
		"currency":         account.Currency,
		"open_positions":   len(s.paperBroker.OpenPositions()),
		"uptime":           time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleStructure(c *gin.Context) {
	snap := s.engine.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"pivots":    snap.Pivots,
		"structure": snap.Structure,
	})
}

func (s *Server) handleBos(c *gin.Context) {
	snap := s.engine.Snapshot()
	c.JSON(http.StatusOK, gin.H{"events": snap.BosEvents})
}

func (s *Server) handleMarkers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"markers": s.annotator.Markers()})
}

func (s *Server) handlePositions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"positions": s.paperBroker.OpenPositions()})
}

func (s *Server) handleAccount(c *gin.Context) {
	c.JSON(http.StatusOK, s.paperBroker.Account())
}

func (s *Server) handleSignals(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"events": s.signalLog.recent()})
}

// signalLog keeps the most recent signal-related events in memory for the
// /signals endpoint. History beyond this window lives in the recorder.
type signalLog struct {
	mu     sync.Mutex
	max    int
	events []events.Event
}

func newSignalLog(max int) *signalLog {
	return &signalLog{max: max}
}

func (l *signalLog) record(e events.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	if len(l.events) > l.max {
		l.events = l.events[len(l.events)-l.max:]
	}
}

func (l *signalLog) recent() []events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.Event, len(l.events))
	copy(out, l.events)
	// Newest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
