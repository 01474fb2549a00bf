package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kbretrieval/internal/app"
	"kbretrieval/internal/transport/http/response"
)

type CategoryHandler struct {
	categoryService *app.CategoryService
}

type AddCategoryRequest struct {
	Name        string `json:"name" binding:"required,max=128"`
	Description string `json:"description" binding:"max=512"`
	Icon        string `json:"icon" binding:"max=64"`
}

func NewCategoryHandler(categoryService *app.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

func (h *CategoryHandler) Add(c *gin.Context) {
	var req AddCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	cat, err := h.categoryService.Add(req.Name, req.Description, req.Icon)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "add category failed")
		}
		return
	}
	response.OK(c, cat)
}

func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.categoryService.List()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list categories failed")
		return
	}
	response.OK(c, categories)
}
