package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"propfirm/internal/engine"
	"propfirm/internal/metrics"
	"propfirm/internal/repository"
)

// Sweeper periodically evaluates every non-terminal account. One failing
// account never stops the sweep; its error is logged and the rest proceed.
type Sweeper struct {
	Repo      repository.Repository
	Evaluator *EvaluationService
	Logger    *zap.Logger
	Collector *metrics.Collector

	// Workers bounds concurrent evaluations within one sweep.
	Workers int
}

func NewSweeper(repo repository.Repository, evaluator *EvaluationService, logger *zap.Logger, workers int) *Sweeper {
	if workers <= 0 {
		workers = 16
	}
	return &Sweeper{
		Repo:      repo,
		Evaluator: evaluator,
		Logger:    logger,
		Workers:   workers,
	}
}

// Run sweeps on the given interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if s == nil || s.Evaluator == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce evaluates all evaluatable accounts and refreshes the risk-level
// gauges from the results.
func (s *Sweeper) RunOnce(ctx context.Context) {
	if s == nil || s.Evaluator == nil {
		return
	}
	ids, err := s.Repo.ListEvaluatableAccountIDs(ctx)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Error("sweep: list accounts", zap.Error(err))
		}
		return
	}
	if len(ids) == 0 {
		return
	}

	var (
		mu      sync.Mutex
		byLevel = map[engine.RiskLevel]int{}
		failed  int
	)
	sem := make(chan struct{}, s.Workers)
	var wg sync.WaitGroup
	for _, id := range ids {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(accountID uint64) {
			defer wg.Done()
			defer func() { <-sem }()
			res, err := s.Evaluator.Evaluate(ctx, accountID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				if s.Logger != nil {
					s.Logger.Warn("sweep: evaluation failed",
						zap.Uint64("account_id", accountID),
						zap.Error(err),
					)
				}
				return
			}
			byLevel[res.RiskLevel]++
		}(id)
	}
	wg.Wait()

	for _, level := range []engine.RiskLevel{engine.RiskLow, engine.RiskMedium, engine.RiskHigh, engine.RiskCritical} {
		s.Collector.SetRiskLevelCount(string(level), byLevel[level])
	}
	if s.Logger != nil {
		s.Logger.Debug("sweep complete",
			zap.Int("accounts", len(ids)),
			zap.Int("failed", failed),
		)
	}
}
