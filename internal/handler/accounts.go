package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventcheckin/internal/auth"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	o, tok, err := h.accounts.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email-taken", "message": err.Error()})
		return
	case errors.Is(err, auth.ErrInvalidSignup):
		badRequest(c, err.Error())
		return
	case err != nil:
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": o, "token": tok.AccessToken, "expires_at": tok.ExpiresAt})
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	o, tok, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrBadCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": err.Error()})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": o, "token": tok.AccessToken, "expires_at": tok.ExpiresAt})
}
