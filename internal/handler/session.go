package handler

import (
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"parkfinder/internal/model"
	"parkfinder/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionHandler exposes session controllers over HTTP. Domain failures
// (not found, fetch errors, denied location) come back as 200 with
// state.error_message set; only protocol problems use error statuses.
type SessionHandler struct {
	store     *service.SessionStore
	log       *zap.Logger
	heartbeat time.Duration
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(store *service.SessionStore, log *zap.Logger) *SessionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionHandler{store: store, log: log, heartbeat: 15 * time.Second}
}

// RegisterRoutes mounts the session endpoints under rg
func (h *SessionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.Create)
	rg.GET("/sessions/:id", h.Get)
	rg.DELETE("/sessions/:id", h.Delete)
	rg.PUT("/sessions/:id/query", h.SetQuery)
	rg.POST("/sessions/:id/select", h.SelectSuggestion)
	rg.POST("/sessions/:id/submit", h.Submit)
	rg.POST("/sessions/:id/check", h.Check)
	rg.PUT("/sessions/:id/origin", h.SetOrigin)
	rg.PUT("/sessions/:id/device", h.ReportDevice)
	rg.POST("/sessions/:id/route", h.Route)
	rg.GET("/sessions/:id/events", h.Events)
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	sess := h.store.Create()
	c.JSON(http.StatusCreated, model.SessionResponse{SessionID: sess.ID, State: sess.Controller.State()})
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	respond(c, sess, sess.Controller.State())
}

// Delete handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if !h.store.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// SetQuery handles PUT /api/v1/sessions/:id/query. It answers with the
// matches right away; availability follows on the event stream.
func (h *SessionHandler) SetQuery(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req model.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	respond(c, sess, sess.Controller.SetQuery(c.Request.Context(), req.Query))
}

// SelectSuggestion handles POST /api/v1/sessions/:id/select
func (h *SessionHandler) SelectSuggestion(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req model.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	respond(c, sess, sess.Controller.SelectSuggestion(c.Request.Context(), req.Address))
}

// Submit handles POST /api/v1/sessions/:id/submit
func (h *SessionHandler) Submit(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	respond(c, sess, sess.Controller.Submit(c.Request.Context()))
}

// Check handles POST /api/v1/sessions/:id/check. An empty address checks
// the search box text.
func (h *SessionHandler) Check(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req model.CheckRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if req.Address == "" {
		respond(c, sess, sess.Controller.Submit(c.Request.Context()))
		return
	}
	respond(c, sess, sess.Controller.Check(c.Request.Context(), req.Address))
}

// SetOrigin handles PUT /api/v1/sessions/:id/origin
func (h *SessionHandler) SetOrigin(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req model.OriginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	respond(c, sess, sess.Controller.SetOrigin(c.Request.Context(), req.Address))
}

// ReportDevice handles PUT /api/v1/sessions/:id/device
func (h *SessionHandler) ReportDevice(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req model.DeviceReport
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	sess.Location.Apply(req)
	respond(c, sess, sess.Controller.State())
}

// Route handles POST /api/v1/sessions/:id/route and waits for the route cycle
func (h *SessionHandler) Route(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req model.RouteRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if req.Device != nil {
		sess.Location.Apply(*req.Device)
	}
	respond(c, sess, sess.Controller.RequestRoute(c.Request.Context()))
}

// Events handles GET /api/v1/sessions/:id/events - one SSE "state" event
// per change, starting with the current state
func (h *SessionHandler) Events(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// Coalesce bursts: the stream only needs the newest version
	var mu sync.Mutex
	var latest model.SessionState
	signal := make(chan struct{}, 1)
	unsubscribe := sess.Controller.Subscribe(func(s model.SessionState) {
		mu.Lock()
		if s.Version > latest.Version {
			latest = s
		}
		mu.Unlock()
		select {
		case signal <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	current := sess.Controller.State()
	sent := current.Version
	sendSSE(c, "state", current)
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			// Keep the session from expiring while someone is watching it
			if _, alive := h.store.Get(sess.ID); !alive {
				sendSSE(c, "closed", nil)
				flusher.Flush()
				return
			}
			_, _ = io.WriteString(c.Writer, ": ping\n\n")
			flusher.Flush()
		case <-signal:
			mu.Lock()
			next := latest
			mu.Unlock()
			if next.Version <= sent {
				continue
			}
			sent = next.Version
			sendSSE(c, "state", next)
			flusher.Flush()
		}
	}
}

func (h *SessionHandler) session(c *gin.Context) (*service.Session, bool) {
	sess, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}
	return sess, true
}

func respond(c *gin.Context, sess *service.Session, state model.SessionState) {
	c.JSON(http.StatusOK, model.SessionResponse{SessionID: sess.ID, State: state})
}

// bindOptionalJSON binds a JSON body when one is present
func bindOptionalJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
