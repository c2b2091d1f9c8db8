package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventcheckin/internal/attendance"
)

func (h *Handler) ListParticipants(c *gin.Context) {
	ps, err := h.svc.ListParticipants(c.Request.Context(), currentEvent(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": ps})
}

func (h *Handler) RegisterParticipant(c *gin.Context) {
	var req attendance.NewParticipant
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := h.svc.RegisterParticipant(c.Request.Context(), currentEvent(c).ID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetParticipant(c *gin.Context) {
	p, err := h.svc.Participant(c.Request.Context(), currentEvent(c).ID, c.Param("pid"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
