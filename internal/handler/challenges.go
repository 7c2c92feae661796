package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"propfirm/internal/models"
	"propfirm/internal/repository"
)

type ChallengeHandler struct {
	Repo repository.Repository
}

func (h *ChallengeHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/challenges")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
}

type challengeRequest struct {
	Name                   string           `json:"name" binding:"required"`
	Phase1TargetPercent    decimal.Decimal  `json:"phase1_target_percent" binding:"required"`
	Phase2TargetPercent    *decimal.Decimal `json:"phase2_target_percent"`
	DailyDrawdownPercent   decimal.Decimal  `json:"daily_drawdown_percent" binding:"required"`
	OverallDrawdownPercent decimal.Decimal  `json:"overall_drawdown_percent" binding:"required"`
	MinTradingDays         int              `json:"min_trading_days"`
	MaxTradingPeriodDays   *int             `json:"max_trading_period_days"`
}

func (r challengeRequest) validate() string {
	if !r.Phase1TargetPercent.IsPositive() {
		return "phase1_target_percent must be positive"
	}
	if r.Phase2TargetPercent != nil && !r.Phase2TargetPercent.IsPositive() {
		return "phase2_target_percent must be positive when set"
	}
	if !r.DailyDrawdownPercent.IsPositive() || !r.OverallDrawdownPercent.IsPositive() {
		return "drawdown limits must be positive"
	}
	if r.DailyDrawdownPercent.GreaterThan(r.OverallDrawdownPercent) {
		return "daily_drawdown_percent cannot exceed overall_drawdown_percent"
	}
	if r.MinTradingDays < 0 {
		return "min_trading_days cannot be negative"
	}
	if r.MaxTradingPeriodDays != nil && *r.MaxTradingPeriodDays <= 0 {
		return "max_trading_period_days must be positive when set"
	}
	return ""
}

func (h *ChallengeHandler) create(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req challengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if msg := req.validate(); msg != "" {
		Error(c, http.StatusBadRequest, msg, nil)
		return
	}
	item := &models.Challenge{
		Name:                   req.Name,
		Phase1TargetPercent:    req.Phase1TargetPercent,
		Phase2TargetPercent:    req.Phase2TargetPercent,
		DailyDrawdownPercent:   req.DailyDrawdownPercent,
		OverallDrawdownPercent: req.OverallDrawdownPercent,
		MinTradingDays:         req.MinTradingDays,
		MaxTradingPeriodDays:   req.MaxTradingPeriodDays,
	}
	if err := h.Repo.InsertChallenge(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func (h *ChallengeHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, total, err := h.Repo.ListChallenges(c.Request.Context(), limit, offset)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *ChallengeHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetChallengeByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "challenge not found", nil)
		return
	}
	Ok(c, item, nil)
}

// update rewrites a rule set that no account references yet. Once accounts
// exist the rule set is frozen; changing live rules would rewrite history.
func (h *ChallengeHandler) update(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	existing, err := h.Repo.GetChallengeByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if existing == nil {
		Error(c, http.StatusNotFound, "challenge not found", nil)
		return
	}
	refs, err := h.Repo.CountAccountsByChallengeID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if refs > 0 {
		Error(c, http.StatusConflict, "challenge is referenced by accounts and cannot be changed", nil)
		return
	}
	var req challengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if msg := req.validate(); msg != "" {
		Error(c, http.StatusBadRequest, msg, nil)
		return
	}
	existing.Name = req.Name
	existing.Phase1TargetPercent = req.Phase1TargetPercent
	existing.Phase2TargetPercent = req.Phase2TargetPercent
	existing.DailyDrawdownPercent = req.DailyDrawdownPercent
	existing.OverallDrawdownPercent = req.OverallDrawdownPercent
	existing.MinTradingDays = req.MinTradingDays
	existing.MaxTradingPeriodDays = req.MaxTradingPeriodDays
	if err := h.Repo.SaveChallenge(c.Request.Context(), existing); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, existing, nil)
}
