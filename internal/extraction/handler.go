package extraction

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"invoice-backend/internal/invoices"
	"invoice-backend/internal/llm"
	"invoice-backend/internal/shared/server/respond"
)

// Handler exposes the extraction pipeline over HTTP.
type Handler struct {
	Svc             *Service
	DefaultProvider llm.Provider
}

// NewHandler constructs a Handler. An invalid default falls back to groq.
func NewHandler(svc *Service, defaultProvider llm.Provider) *Handler {
	if !defaultProvider.Valid() {
		defaultProvider = llm.ProviderGroq
	}
	return &Handler{Svc: svc, DefaultProvider: defaultProvider}
}

// RegisterRoutes attaches the extract route. Extra handlers (rate limiting) run first.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, pre ...gin.HandlerFunc) {
	rg.POST("/extract", append(pre, h.extract)...)
}

type extractRequest struct {
	FileID string `json:"fileId"`
	Model  string `json:"model"`
}

func (h *Handler) extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, invoices.ErrorCodeValidation, "invalid request body", nil)
		return
	}
	req.FileID = strings.TrimSpace(req.FileID)
	if req.FileID == "" {
		respond.Error(c, http.StatusBadRequest, invoices.ErrorCodeValidation, "fileId is required", nil)
		return
	}
	if !invoices.ValidFileID(req.FileID) {
		respond.Error(c, http.StatusBadRequest, invoices.ErrorCodeValidation, "fileId must be alphanumeric with dashes/underscores only", nil)
		return
	}
	c.Set("fileId", req.FileID)

	provider := h.DefaultProvider
	if strings.TrimSpace(req.Model) != "" {
		p, err := llm.ParseProvider(req.Model)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, string(KindUnsupportedProvider), KindUnsupportedProvider.Message(), nil)
			return
		}
		provider = p
	}
	c.Set("provider", provider.String())

	rec, err := h.Svc.Extract(c.Request.Context(), req.FileID, provider)
	if err != nil {
		kind := KindOf(err)
		var ee *Error
		var details any
		if errors.As(err, &ee) {
			details = gin.H{"step": string(ee.Step)}
		}
		respond.Error(c, kind.HTTPStatus(), string(kind), kind.Message(), details)
		return
	}
	respond.OK(c, rec)
}
