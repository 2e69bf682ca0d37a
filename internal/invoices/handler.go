package invoices

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"invoice-backend/internal/shared/server/respond"
	"invoice-backend/internal/shared/telemetry"
)

const defaultMaxUploadBytes = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches invoice routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload", h.upload)
	rg.GET("/invoices", h.list)
	rg.GET("/invoices/:fileId", h.get)
	rg.PUT("/invoices/:fileId", h.edit)
	rg.DELETE("/invoices/:fileId", h.delete)
	rg.GET("/files/:fileId", h.file)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, ErrorCodeValidation, "file too large", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "unable to read file", nil)
		return
	}
	defer file.Close()

	rec, err := h.Svc.Upload(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotPDF):
			respond.Error(c, http.StatusBadRequest, ErrorCodeNotPDF, "only PDF files are accepted", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), nil)
		default:
			telemetry.Error("invoice.upload_failed", map[string]any{"error": err})
			respond.Error(c, http.StatusInternalServerError, ErrorCodeStorage, "failed to upload file", nil)
		}
		return
	}

	c.Set("fileId", rec.FileID)
	location := path.Join(path.Dir(c.Request.URL.Path), "invoices", rec.FileID)
	respond.Created(c, location, UploadResponse{FileID: rec.FileID, FileName: rec.FileName})
}

func (h *Handler) list(c *gin.Context) {
	recs, err := h.Svc.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		telemetry.Error("invoice.list_failed", map[string]any{"error": err})
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to list invoices", nil)
		return
	}
	respond.OK(c, recs)
}

func (h *Handler) get(c *gin.Context) {
	fileID := c.Param("fileId")
	c.Set("fileId", fileID)

	rec, err := h.Svc.Get(c.Request.Context(), fileID)
	if err != nil {
		h.writeError(c, err, "failed to fetch invoice")
		return
	}
	respond.OK(c, rec)
}

func (h *Handler) edit(c *gin.Context) {
	fileID := c.Param("fileId")
	c.Set("fileId", fileID)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}
	if err := ValidateEdit(body); err != nil {
		h.writeError(c, err, "failed to validate invoice")
		return
	}
	var req EditRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}

	rec, err := h.Svc.Edit(c.Request.Context(), fileID, req)
	if err != nil {
		h.writeError(c, err, "failed to update invoice")
		return
	}
	respond.OK(c, rec)
}

func (h *Handler) delete(c *gin.Context) {
	fileID := c.Param("fileId")
	c.Set("fileId", fileID)

	if err := h.Svc.Delete(c.Request.Context(), fileID); err != nil {
		h.writeError(c, err, "failed to delete invoice")
		return
	}
	respond.OK(c, DeleteResponse{FileID: fileID, Deleted: true})
}

func (h *Handler) file(c *gin.Context) {
	fileID := c.Param("fileId")
	c.Set("fileId", fileID)

	rec, body, err := h.Svc.OpenFile(c.Request.Context(), fileID)
	if err != nil {
		h.writeError(c, err, "failed to open file")
		return
	}
	defer body.Close()

	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": rec.FileName}))
	c.DataFromReader(http.StatusOK, -1, mimePDF, body, nil)
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, "invoice not found", nil)
	default:
		telemetry.Error("invoice.request_failed", map[string]any{"error": err, "file_id": c.Param("fileId")})
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, fallback, nil)
	}
}
