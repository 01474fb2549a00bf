package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kbretrieval/internal/app"
	"kbretrieval/internal/transport/http/response"
)

type QueryHandler struct {
	retrievalService *app.RetrievalService
}

type QueryRequest struct {
	Query    string `json:"query" binding:"required"`
	TopK     int    `json:"top_k"`
	Category string `json:"category"`
}

func NewQueryHandler(retrievalService *app.RetrievalService) *QueryHandler {
	return &QueryHandler{retrievalService: retrievalService}
}

func (h *QueryHandler) Retrieve(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.retrievalService.Retrieve(c.Request.Context(), app.RetrieveInput{
		Query:    req.Query,
		TopK:     req.TopK,
		Category: req.Category,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "retrieve failed")
		}
		return
	}
	response.OK(c, result)
}
