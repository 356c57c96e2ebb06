package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/haebom/tariff/internal/application/dashboard"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
	"github.com/haebom/tariff/pkg/errors"
)

// HeaderClientID names the client whose searches a seq orders.  Without it
// the client query parameter, then the remote address, is used.
const HeaderClientID = "X-Client-ID"

// ReferenceHandler serves the HS reference sections and code search.
type ReferenceHandler struct {
	svc    dashboard.Service
	logger logging.Logger
}

func NewReferenceHandler(svc dashboard.Service, logger logging.Logger) *ReferenceHandler {
	return &ReferenceHandler{svc: svc, logger: logger}
}

func (h *ReferenceHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/reference/sections", h.Sections)
	r.GET("/reference/search", h.Search)
}

// Sections handles GET /reference/sections.
func (h *ReferenceHandler) Sections(c *gin.Context) {
	sections, err := h.svc.Sections(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"sections": sections, "count": len(sections)})
}

// Search handles GET /reference/search?q=&section=&limit=&seq=&client=.
func (h *ReferenceHandler) Search(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var seq uint64
	if v := c.Query("seq"); v != "" {
		seq, err = strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(c, h.logger, errors.InvalidParam("seq must be a non-negative integer"))
			return
		}
	}

	res, err := h.svc.Search(c.Request.Context(), &dashboard.SearchInput{
		Query:   c.Query("q"),
		Section: c.Query("section"),
		Limit:   limit,
		Seq:     seq,
		Client:  searchClient(c),
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func searchClient(c *gin.Context) string {
	if id := c.GetHeader(HeaderClientID); id != "" {
		return id
	}
	if id := c.Query("client"); id != "" {
		return id
	}
	return c.ClientIP()
}
