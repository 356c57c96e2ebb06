package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haebom/tariff/internal/application/dashboard"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
	"github.com/haebom/tariff/pkg/errors"
)

// PolicyHandler serves the policy tree and rate resolution.
type PolicyHandler struct {
	svc    dashboard.Service
	logger logging.Logger
}

func NewPolicyHandler(svc dashboard.Service, logger logging.Logger) *PolicyHandler {
	return &PolicyHandler{svc: svc, logger: logger}
}

func (h *PolicyHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/policy/tree", h.Tree)
	r.GET("/policy/nodes/*id", h.Node)
	r.POST("/policy/resolve", h.Resolve)
}

// Tree handles GET /policy/tree.
func (h *PolicyHandler) Tree(c *gin.Context) {
	view, err := h.svc.Tree(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, view)
}

// Node handles GET /policy/nodes/*id.  Node ids contain slashes
// ("china/april_11_exemption/no"), hence the wildcard.
func (h *PolicyHandler) Node(c *gin.Context) {
	id := trimLeadingSlash(c.Param("id"))
	if id == "" {
		writeError(c, h.logger, errors.InvalidParam("node id is required"))
		return
	}
	detail, err := h.svc.Node(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, detail)
}

// Resolve handles POST /policy/resolve.
func (h *PolicyHandler) Resolve(c *gin.Context) {
	var input dashboard.ResolveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeError(c, h.logger, errors.InvalidParam("invalid request body").WithCause(err))
		return
	}
	res, err := h.svc.Resolve(c.Request.Context(), &input)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func trimLeadingSlash(s string) string {
	for len(s) > 0 && s[0] == '/' {
		s = s[1:]
	}
	return s
}
