package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"eventcheckin/internal/attendance"
	"eventcheckin/internal/auth"
	"eventcheckin/internal/importer"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Handler serves the HTTP API.
type Handler struct {
	svc      *attendance.Service
	accounts *auth.Accounts
	signer   *auth.Signer
	importer *importer.Reconciler
	loc      *time.Location
	checks   map[string]HealthCheck
}

// Deps are the collaborators a Handler needs.
type Deps struct {
	Service  *attendance.Service
	Accounts *auth.Accounts
	Signer   *auth.Signer
	Importer *importer.Reconciler
	Location *time.Location
	Checks   map[string]HealthCheck
}

func New(d Deps) *Handler {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		svc:      d.Service,
		accounts: d.Accounts,
		signer:   d.Signer,
		importer: d.Importer,
		loc:      loc,
		checks:   d.Checks,
	}
}

// Routes mounts every endpoint. limit runs on the authenticated API group.
func (h *Handler) Routes(r gin.IRouter, limit ...gin.HandlerFunc) {
	r.GET("/healthz", h.Healthz)

	pub := r.Group("/v1/auth", limit...)
	pub.POST("/register", h.Register)
	pub.POST("/login", h.Login)

	api := r.Group("/v1", auth.OrganizerAuth(h.signer))
	api.Use(limit...)
	api.POST("/events", h.CreateEvent)
	api.GET("/events", h.ListEvents)

	evt := api.Group("/events/:id", h.requireOwnedEvent)
	evt.GET("", h.GetEvent)
	evt.GET("/color", h.CurrentColor)
	evt.GET("/stats/daily", h.DailyStats)
	evt.GET("/participants", h.ListParticipants)
	evt.POST("/participants", h.RegisterParticipant)
	evt.GET("/participants/:pid", h.GetParticipant)
	evt.POST("/scan", h.Scan)
	evt.POST("/confirm", h.Confirm)
	evt.POST("/import", h.Import)
	evt.GET("/export", h.Export)
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	report := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			log.Printf("health check %s failed: %v", name, err)
			report[name] = false
			status = http.StatusServiceUnavailable
			continue
		}
		report[name] = true
	}
	if status == http.StatusOK {
		report["status"] = "ok"
	} else {
		report["status"] = "degraded"
	}
	c.JSON(status, report)
}

// ---------- Errors ----------

var reasonStatus = map[attendance.Reason]int{
	attendance.ReasonNotFound:       http.StatusNotFound,
	attendance.ReasonColorMismatch:  http.StatusBadRequest,
	attendance.ReasonEventNotActive: http.StatusBadRequest,
	attendance.ReasonPrecondition:   http.StatusBadRequest,
	attendance.ReasonInvalidRequest: http.StatusBadRequest,
	attendance.ReasonAlreadyDone:    http.StatusConflict,
	attendance.ReasonStoreConflict:  http.StatusConflict,
}

// writeError maps rejections to their status; anything else is a 500.
func writeError(c *gin.Context, err error) {
	if r, ok := attendance.AsRejection(err); ok {
		status, known := reasonStatus[r.Reason]
		if !known {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": r.Reason, "message": r.Error()})
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable", "message": "request timed out"})
		return
	}
	log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "internal server error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": attendance.ReasonInvalidRequest, "message": msg})
}
