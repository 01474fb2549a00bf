package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kbretrieval/internal/app"
	"kbretrieval/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
}

type TokenRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

func NewAuthHandler(authService *app.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	token, err := h.authService.IssueToken(req.APIKey)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrAuthNotConfigured):
			response.Error(c, http.StatusServiceUnavailable, response.CodeAuthNotConfigured, err.Error())
		case errors.Is(err, app.ErrInvalidCredential):
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "issue token failed")
		}
		return
	}
	response.OK(c, gin.H{"token": token})
}
