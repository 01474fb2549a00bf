package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"kbretrieval/internal/app"
	"kbretrieval/internal/pkg/extract"
	"kbretrieval/internal/platform/rabbitmq"
	"kbretrieval/internal/transport/http/response"
)

type DocumentHandler struct {
	indexService   *app.IndexService
	extractor      *extract.Extractor
	publisher      *rabbitmq.ReindexPublisher
	maxUploadBytes int64
}

type IngestPathRequest struct {
	Path     string `json:"path" binding:"required"`
	Category string `json:"category" binding:"required"`
	Filename string `json:"filename"`
}

func NewDocumentHandler(
	indexService *app.IndexService,
	extractor *extract.Extractor,
	publisher *rabbitmq.ReindexPublisher,
	maxUploadBytes int64,
) *DocumentHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &DocumentHandler{
		indexService:   indexService,
		extractor:      extractor,
		publisher:      publisher,
		maxUploadBytes: maxUploadBytes,
	}
}

// Upload accepts a multipart form with "file" and "category" (optional
// "filename"), extracts text and indexes the document.
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > h.maxUploadBytes {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large")
		return
	}
	category := strings.TrimSpace(c.PostForm("category"))
	if category == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing category")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	filename := strings.TrimSpace(c.PostForm("filename"))
	if filename == "" {
		filename = file.Filename
	}

	content, err := h.extractor.FromReader(f, filename)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}

	result, err := h.indexService.Ingest(c.Request.Context(), app.IngestInput{
		Category: category,
		Filename: filename,
		Content:  content,
		FileSize: file.Size,
		FileType: strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."),
	})
	if err != nil {
		writeIngestError(c, err)
		return
	}
	response.OK(c, result)
}

// UploadFromPath indexes a server-local file by path.
func (h *DocumentHandler) UploadFromPath(c *gin.Context) {
	var req IngestPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.indexService.UploadFromPath(c.Request.Context(), req.Path, req.Category, req.Filename)
	if err != nil {
		writeIngestError(c, err)
		return
	}
	response.OK(c, result)
}

func writeIngestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrFileNotFound):
		response.Error(c, http.StatusNotFound, response.CodeFileNotFound, err.Error())
	case errors.Is(err, app.ErrExtractionFailed):
		response.Error(c, http.StatusBadRequest, response.CodeExtractionFailed, err.Error())
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest failed: "+err.Error())
	}
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.indexService.ListByCategory(c.Query("category"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil || id == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	doc, err := h.indexService.Get(id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get document failed")
		return
	}
	if doc == nil {
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "document not found")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil || id == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	deleted, err := h.indexService.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		return
	}
	response.OK(c, gin.H{"document_id": id, "deleted": deleted})
}

// Reindex enqueues an async rebuild of the document's chunks.
func (h *DocumentHandler) Reindex(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil || id == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	doc, err := h.indexService.Get(id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get document failed")
		return
	}
	if doc == nil {
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "document not found")
		return
	}
	if err := h.publisher.Publish(c.Request.Context(), rabbitmq.ReindexJob{DocumentID: id}); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "enqueue reindex failed")
		return
	}
	c.JSON(http.StatusAccepted, response.APIResponse{
		Code:    response.CodeOK,
		Message: "reindex enqueued",
		Data:    gin.H{"document_id": id},
	})
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	s := c.Param(key)
	u, err := strconv.ParseUint(s, 10, 64)
	return uint(u), err
}
