package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/haebom/tariff/internal/application/dashboard"
	"github.com/haebom/tariff/internal/application/newsfeed"
	"github.com/haebom/tariff/internal/domain/news"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
	"github.com/haebom/tariff/pkg/errors"
)

// SelectionSource yields the current node selection.  The live news filter
// falls back to its keywords.
type SelectionSource interface {
	Selection(ctx context.Context) (*dashboard.SelectionView, error)
}

// NewsHandler serves stored and live tariff news.
type NewsHandler struct {
	svc       newsfeed.Service
	selection SelectionSource
	logger    logging.Logger
}

func NewNewsHandler(svc newsfeed.Service, selection SelectionSource, logger logging.Logger) *NewsHandler {
	return &NewsHandler{svc: svc, selection: selection, logger: logger}
}

// RegisterRoutes registers the read-only news routes.  Fetch and Cleanup
// are mounted by the router behind the API key guard.
func (h *NewsHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/news", h.List)
	r.GET("/news/by-date", h.ByDate)
	r.GET("/news/by-source", h.BySource)
	r.GET("/news/live", h.Live)
}

// List handles GET /news?query=&source=&startDate=&endDate=&page=&limit=.
func (h *NewsHandler) List(c *gin.Context) {
	var params news.SearchParams
	if err := c.ShouldBindQuery(&params); err != nil {
		writeError(c, h.logger, errors.New(errors.ErrCodeInvalidQuery, "invalid query parameters").WithCause(err))
		return
	}
	res, err := h.svc.Query(c.Request.Context(), params)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

// ByDate handles GET /news/by-date?date=YYYY-MM-DD.
func (h *NewsHandler) ByDate(c *gin.Context) {
	day := c.Query("date")
	if day == "" {
		writeError(c, h.logger, errors.New(errors.ErrCodeInvalidQuery, "date is required"))
		return
	}
	res, err := h.svc.ByDate(c.Request.Context(), day)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

// BySource handles GET /news/by-source?source=.
func (h *NewsHandler) BySource(c *gin.Context) {
	source := c.Query("source")
	if source == "" {
		writeError(c, h.logger, errors.New(errors.ErrCodeInvalidQuery, "source is required"))
		return
	}
	res, err := h.svc.BySource(c.Request.Context(), source)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

// Live handles GET /news/live?keywords=a,b.  Without keywords the current
// selection's keywords apply; with neither, every article is returned.
func (h *NewsHandler) Live(c *gin.Context) {
	keywords := splitKeywords(c.Query("keywords"))
	if len(keywords) == 0 && h.selection != nil {
		if view, err := h.selection.Selection(c.Request.Context()); err == nil {
			keywords = view.Keywords
		}
	}
	res, err := h.svc.Live(c.Request.Context(), keywords)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

// Fetch handles POST /news/fetch.
func (h *NewsHandler) Fetch(c *gin.Context) {
	res, err := h.svc.Ingest(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true, "result": res})
}

// Cleanup handles POST /news/cleanup?days=N.
func (h *NewsHandler) Cleanup(c *gin.Context) {
	days, err := queryInt(c, "days")
	if err != nil {
		writeError(c, h.logger, errors.New(errors.ErrCodeInvalidQuery, "days must be a positive integer"))
		return
	}
	res, err := h.svc.Cleanup(c.Request.Context(), days)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true, "result": res})
}

// RSS handles GET /api/rss by proxying the live feed document.
func (h *NewsHandler) RSS(c *gin.Context) {
	body, err := h.svc.LiveXML(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
}

func splitKeywords(raw string) []string {
	var out []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
