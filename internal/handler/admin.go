package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"propfirm/internal/engine"
	"propfirm/internal/service"
)

// AdminHandler exposes manual overrides. Unlike the trader-facing routes,
// failures here return the underlying error with the account id so operators
// can act on it.
type AdminHandler struct {
	Admin *service.AdminService
}

func (h *AdminHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/admin/accounts/:id")
	g.POST("/force-phase", h.forcePhase)
	g.POST("/force-status", h.forceStatus)
}

type forcePhaseRequest struct {
	ToPhase string `json:"to_phase" binding:"required"`
	ActorID string `json:"actor_id" binding:"required"`
	Reason  string `json:"reason" binding:"required"`
}

type forceStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	ActorID string `json:"actor_id" binding:"required"`
	Reason  string `json:"reason" binding:"required"`
}

func (h *AdminHandler) forcePhase(c *gin.Context) {
	if h.Admin == nil {
		Error(c, http.StatusServiceUnavailable, "admin service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req forcePhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	transition, err := h.Admin.ForcePhase(c.Request.Context(), id, req.ToPhase, req.ActorID, req.Reason)
	if err != nil {
		adminError(c, id, err)
		return
	}
	Ok(c, transition, nil)
}

func (h *AdminHandler) forceStatus(c *gin.Context) {
	if h.Admin == nil {
		Error(c, http.StatusServiceUnavailable, "admin service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req forceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Admin.ForceStatus(c.Request.Context(), id, req.Status, req.ActorID, req.Reason); err != nil {
		adminError(c, id, err)
		return
	}
	Ok(c, gin.H{"account_id": id, "status": req.Status}, nil)
}

func adminError(c *gin.Context, accountID uint64, err error) {
	meta := map[string]any{"account_id": accountID}
	var cfgErr *engine.ConfigurationError
	if errors.As(err, &cfgErr) {
		Error(c, http.StatusBadRequest, cfgErr.Reason, meta)
		return
	}
	Error(c, http.StatusBadGateway, err.Error(), meta)
}
