package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haebom/tariff/internal/application/dashboard"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
	"github.com/haebom/tariff/pkg/errors"
)

// SelectionHandler manages the selected policy node and keyword extraction.
type SelectionHandler struct {
	svc    dashboard.Service
	logger logging.Logger
}

func NewSelectionHandler(svc dashboard.Service, logger logging.Logger) *SelectionHandler {
	return &SelectionHandler{svc: svc, logger: logger}
}

func (h *SelectionHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/keywords", h.Keywords)
	r.GET("/selection", h.Get)
	r.POST("/selection", h.Select)
	r.DELETE("/selection", h.Reset)
}

// SelectRequest is the body of POST /selection.
type SelectRequest struct {
	NodeID string `json:"node_id" binding:"required"`
}

// Keywords handles GET /keywords?phrase=.
func (h *SelectionHandler) Keywords(c *gin.Context) {
	phrase := c.Query("phrase")
	keywords := h.svc.Keywords(c.Request.Context(), phrase)
	if keywords == nil {
		keywords = []string{}
	}
	writeJSON(c, http.StatusOK, gin.H{"phrase": phrase, "keywords": keywords})
}

func (h *SelectionHandler) Get(c *gin.Context) {
	h.respond(c)(h.svc.Selection(c.Request.Context()))
}

func (h *SelectionHandler) Select(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, errors.InvalidParam("node_id is required").WithCause(err))
		return
	}
	h.respond(c)(h.svc.Select(c.Request.Context(), req.NodeID))
}

func (h *SelectionHandler) Reset(c *gin.Context) {
	h.respond(c)(h.svc.ResetSelection(c.Request.Context()))
}

func (h *SelectionHandler) respond(c *gin.Context) func(*dashboard.SelectionView, error) {
	return func(view *dashboard.SelectionView, err error) {
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		writeJSON(c, http.StatusOK, view)
	}
}
