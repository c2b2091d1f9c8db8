package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventcheckin/internal/attendance"
	"eventcheckin/internal/auth"
)

const eventKey = "event"

// requireOwnedEvent loads :id for the authenticated organizer; other organizers see 404.
func (h *Handler) requireOwnedEvent(c *gin.Context) {
	evt, err := h.svc.OwnedEvent(c.Request.Context(), auth.OrganizerID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		c.Abort()
		return
	}
	c.Set(eventKey, evt)
	c.Next()
}

func currentEvent(c *gin.Context) attendance.Event {
	evt, _ := c.MustGet(eventKey).(attendance.Event)
	return evt
}

func (h *Handler) CreateEvent(c *gin.Context) {
	var req attendance.NewEvent
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	evt, err := h.svc.CreateEvent(c.Request.Context(), auth.OrganizerID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, evt)
}

func (h *Handler) ListEvents(c *gin.Context) {
	events, err := h.svc.ListEvents(c.Request.Context(), auth.OrganizerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *Handler) GetEvent(c *gin.Context) {
	detail, err := h.svc.EventDetail(c.Request.Context(), auth.OrganizerID(c), currentEvent(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) CurrentColor(c *gin.Context) {
	color, ends, err := h.svc.CurrentColor(c.Request.Context(), currentEvent(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"color": color, "window_ends_at": ends.UTC()})
}

func (h *Handler) DailyStats(c *gin.Context) {
	stats, err := h.svc.DailyStats(c.Request.Context(), currentEvent(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
