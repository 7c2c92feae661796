package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"propfirm/internal/service"
)

type RiskHandler struct {
	Evaluator *service.EvaluationService
}

func (h *RiskHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/risk/overview", h.overview)
}

func (h *RiskHandler) overview(c *gin.Context) {
	if h.Evaluator == nil {
		Error(c, http.StatusServiceUnavailable, "evaluator unavailable", nil)
		return
	}
	out, err := h.Evaluator.RiskOverview(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, out, nil)
}
