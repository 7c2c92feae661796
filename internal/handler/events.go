package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"propfirm/internal/engine"
	"propfirm/internal/service"
)

// EventHandler is the broker-adapter ingest surface. Both routes sit behind a
// shared token bucket so a runaway adapter cannot starve the evaluator.
type EventHandler struct {
	Ledger  *service.LedgerService
	Limiter *rate.Limiter
}

func NewEventHandler(ledger *service.LedgerService, ratePerSecond float64, burst int) *EventHandler {
	if ratePerSecond <= 0 {
		ratePerSecond = 200
	}
	if burst <= 0 {
		burst = int(ratePerSecond) * 2
	}
	return &EventHandler{
		Ledger:  ledger,
		Limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (h *EventHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/events", h.throttle)
	g.POST("/trade", h.trade)
	g.POST("/equity", h.equity)
}

func (h *EventHandler) throttle(c *gin.Context) {
	if h.Limiter != nil && !h.Limiter.Allow() {
		Error(c, http.StatusTooManyRequests, "ingest rate exceeded", nil)
		c.Abort()
		return
	}
	c.Next()
}

func (h *EventHandler) trade(c *gin.Context) {
	if h.Ledger == nil {
		Error(c, http.StatusServiceUnavailable, "ledger unavailable", nil)
		return
	}
	var ev service.TradeEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if ev.AccountID == 0 {
		Error(c, http.StatusBadRequest, "account_id is required", nil)
		return
	}
	if ev.OpenedAt.IsZero() {
		Error(c, http.StatusBadRequest, "opened_at is required", nil)
		return
	}
	trade, err := h.Ledger.ApplyTrade(c.Request.Context(), ev)
	if err != nil {
		ingestError(c, err)
		return
	}
	Ok(c, trade, nil)
}

func (h *EventHandler) equity(c *gin.Context) {
	if h.Ledger == nil {
		Error(c, http.StatusServiceUnavailable, "ledger unavailable", nil)
		return
	}
	var ev service.EquityEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if ev.AccountID == 0 {
		Error(c, http.StatusBadRequest, "account_id is required", nil)
		return
	}
	if err := h.Ledger.ApplyEquity(c.Request.Context(), ev); err != nil {
		ingestError(c, err)
		return
	}
	Ok(c, gin.H{"applied": true}, nil)
}

func ingestError(c *gin.Context, err error) {
	var cfgErr *engine.ConfigurationError
	if errors.As(err, &cfgErr) {
		Error(c, http.StatusNotFound, cfgErr.Reason, nil)
		return
	}
	var integrityErr *engine.DataIntegrityError
	if errors.As(err, &integrityErr) {
		Error(c, http.StatusBadRequest, integrityErr.Error(), nil)
		return
	}
	Error(c, http.StatusBadGateway, err.Error(), nil)
}
