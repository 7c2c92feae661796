package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"propfirm/internal/models"
	"propfirm/internal/repository"
	"propfirm/internal/service"
)

type AccountHandler struct {
	Repo      repository.Repository
	Evaluator *service.EvaluationService

	// DefaultTimezone applies to accounts created without an explicit zone.
	DefaultTimezone string
}

func (h *AccountHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/accounts")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.GET("/:id/metrics", h.metrics)
	g.POST("/:id/evaluate", h.evaluate)
}

type createAccountRequest struct {
	ChallengeID    uint64          `json:"challenge_id" binding:"required"`
	TraderID       string          `json:"trader_id" binding:"required"`
	InitialBalance decimal.Decimal `json:"initial_balance" binding:"required"`
	Timezone       string          `json:"timezone"`
}

func (h *AccountHandler) create(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if !req.InitialBalance.IsPositive() {
		Error(c, http.StatusBadRequest, "initial_balance must be positive", nil)
		return
	}
	challenge, err := h.Repo.GetChallengeByID(c.Request.Context(), req.ChallengeID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if challenge == nil {
		Error(c, http.StatusBadRequest, "challenge not found", nil)
		return
	}
	tz := req.Timezone
	if tz == "" {
		tz = h.DefaultTimezone
	}
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		Error(c, http.StatusBadRequest, "invalid timezone", nil)
		return
	}
	item := &models.Account{
		ChallengeID:      req.ChallengeID,
		TraderID:         req.TraderID,
		InitialBalance:   req.InitialBalance,
		Balance:          req.InitialBalance,
		Equity:           req.InitialBalance,
		MaxEquityToDate:  req.InitialBalance,
		TodayStartEquity: req.InitialBalance,
		Phase:            models.PhaseOne,
		Status:           models.StatusActive,
		Timezone:         tz,
	}
	if err := h.Repo.InsertAccount(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func (h *AccountHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListAccountsParams{
		Limit:    limit,
		Offset:   offset,
		Phase:    strQueryPtr(c, "phase"),
		Status:   strQueryPtr(c, "status"),
		TraderID: strQueryPtr(c, "trader_id"),
		OrderBy: parseOrder(c.Query("order_by"), map[string]string{
			"created_at": "created_at",
			"updated_at": "updated_at",
			"equity":     "equity",
		}),
		Asc: boolPtr(false),
	}
	items, err := h.Repo.ListAccounts(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountAccounts(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *AccountHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetAccountByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "account not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *AccountHandler) metrics(c *gin.Context) {
	if h.Evaluator == nil {
		Error(c, http.StatusServiceUnavailable, "evaluator unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	out, err := h.Evaluator.Metrics(c.Request.Context(), id)
	if err != nil {
		evaluationError(c, err)
		return
	}
	Ok(c, out, nil)
}

func (h *AccountHandler) evaluate(c *gin.Context) {
	if h.Evaluator == nil {
		Error(c, http.StatusServiceUnavailable, "evaluator unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	out, err := h.Evaluator.Evaluate(c.Request.Context(), id)
	if err != nil {
		evaluationError(c, err)
		return
	}
	Ok(c, out, nil)
}
