package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventcheckin/internal/attendance"
)

type scanRequest struct {
	Secret string          `json:"secret"`
	Color  string          `json:"color"`
	Day    attendance.Day  `json:"day"`
	Kind   attendance.Kind `json:"kind"`
}

type confirmRequest struct {
	ParticipantID string          `json:"participant_id"`
	Day           attendance.Day  `json:"day"`
	Kind          attendance.Kind `json:"kind"`
	Color         string          `json:"color"`
}

// Scan verifies a QR scan without changing anything.
func (h *Handler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	v, err := h.svc.Verify(c.Request.Context(), currentEvent(c).ID, attendance.ScanRequest{
		Secret: req.Secret,
		Color:  req.Color,
		Day:    req.Day,
		Kind:   req.Kind,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Confirm commits a verified activity.
func (h *Handler) Confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	a, err := h.svc.Confirm(c.Request.Context(), currentEvent(c).ID, attendance.ConfirmRequest{
		ParticipantID: req.ParticipantID,
		Day:           req.Day,
		Kind:          req.Kind,
		Color:         req.Color,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	kind, _ := attendance.ParseKind(string(req.Kind))
	c.JSON(http.StatusOK, gin.H{"activity": a, "message": confirmMessage(kind, a.Day)})
}

func confirmMessage(kind attendance.Kind, day attendance.Day) string {
	switch kind {
	case attendance.KindLunch:
		return fmt.Sprintf("lunch recorded for %s", day)
	case attendance.KindKit:
		return fmt.Sprintf("kit recorded for %s", day)
	default:
		return fmt.Sprintf("checked in for %s", day)
	}
}
