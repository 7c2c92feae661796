package service

import (
	"context"

	"propfirm/internal/engine"
	"propfirm/internal/models"
	"propfirm/internal/repository"
)

// RiskOverviewEntry is one account's advisory standing in the fleet view.
type RiskOverviewEntry struct {
	AccountID              uint64           `json:"account_id"`
	TraderID               string           `json:"trader_id"`
	Phase                  string           `json:"phase"`
	Status                 string           `json:"status"`
	RiskLevel              engine.RiskLevel `json:"risk_level"`
	DailyDrawdownPercent   string           `json:"daily_drawdown_percent"`
	OverallDrawdownPercent string           `json:"overall_drawdown_percent"`
	StaleEquity            bool             `json:"stale_equity"`
}

// RiskOverview is the monitoring dashboard's fleet summary.
type RiskOverview struct {
	Totals   map[string]int      `json:"totals"`
	Elevated []RiskOverviewEntry `json:"elevated"`
}

// RiskOverview classifies every non-terminal account read-only. It takes no
// account locks and writes nothing; a concurrent evaluation at worst makes an
// entry one tick stale.
func (s *EvaluationService) RiskOverview(ctx context.Context) (RiskOverview, error) {
	overview := RiskOverview{
		Totals:   map[string]int{},
		Elevated: []RiskOverviewEntry{},
	}

	rules := map[uint64]*models.Challenge{}
	now := s.clock()()
	offset := 0
	const page = 500
	for {
		accounts, err := s.Repo.ListAccounts(ctx, repository.ListAccountsParams{Limit: page, Offset: offset})
		if err != nil {
			return RiskOverview{}, err
		}
		for _, acct := range accounts {
			if acct.Terminal() {
				continue
			}
			ch, ok := rules[acct.ChallengeID]
			if !ok {
				ch, err = s.Repo.GetChallengeByID(ctx, acct.ChallengeID)
				if err != nil {
					return RiskOverview{}, err
				}
				rules[acct.ChallengeID] = ch
			}
			if ch == nil {
				continue
			}
			snap, err := engine.ComputeSnapshot(engine.MetricsInputs{
				InitialBalance:       acct.InitialBalance,
				Balance:              acct.Balance,
				Equity:               acct.Equity,
				MaxEquityToDate:      acct.MaxEquityToDate,
				TodayStartEquity:     acct.TodayStartEquity,
				TradingDaysCompleted: acct.TradingDaysCount,
				EquityUpdatedAt:      acct.EquityUpdatedAt,
			}, now)
			if err != nil {
				continue
			}
			level := engine.ClassifyRisk(snap, *ch)
			overview.Totals[string(level)]++
			if level == engine.RiskHigh || level == engine.RiskCritical {
				stale := false
				if s.Config.StaleEquityAfter > 0 && !acct.EquityUpdatedAt.IsZero() {
					stale = now.Sub(acct.EquityUpdatedAt) > s.Config.StaleEquityAfter
				}
				overview.Elevated = append(overview.Elevated, RiskOverviewEntry{
					AccountID:              acct.ID,
					TraderID:               acct.TraderID,
					Phase:                  acct.Phase,
					Status:                 acct.Status,
					RiskLevel:              level,
					DailyDrawdownPercent:   snap.DailyDrawdownPercent.StringFixed(4),
					OverallDrawdownPercent: snap.OverallDrawdownPercent.StringFixed(4),
					StaleEquity:            stale,
				})
			}
		}
		if len(accounts) < page {
			break
		}
		offset += page
	}
	return overview, nil
}
