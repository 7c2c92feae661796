package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"propfirm/internal/engine"
	"propfirm/internal/models"
	"propfirm/internal/repository"
	"propfirm/internal/stream"
)

var validPhases = map[string]bool{
	models.PhaseOne:    true,
	models.PhaseTwo:    true,
	models.PhaseFunded: true,
	models.PhaseFailed: true,
}

var validStatuses = map[string]bool{
	models.StatusActive:       true,
	models.StatusPaused:       true,
	models.StatusClosed:       true,
	models.StatusDailyLocked:  true,
	models.StatusDisqualified: true,
}

// AdminService performs manual overrides. Every override requires an actor
// and a reason, lands in the audit log, and for phase changes also in the
// transition history as a manual record. The automatic evaluator never
// reverses a manual override; it only keeps evaluating forward from the new
// state.
type AdminService struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Stream *stream.Hub

	locks *accountLocks
	now   func() time.Time
}

func NewAdminService(evaluator *EvaluationService, logger *zap.Logger, hub *stream.Hub) *AdminService {
	return &AdminService{
		Repo:   evaluator.Repo,
		Logger: logger,
		Stream: hub,
		locks:  evaluator.locks,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ForcePhase moves the account to the given phase regardless of its metrics.
func (s *AdminService) ForcePhase(ctx context.Context, accountID uint64, toPhase, actorID, reason string) (*models.PhaseTransition, error) {
	if !validPhases[toPhase] {
		return nil, &engine.ConfigurationError{Reason: fmt.Sprintf("unknown phase %q", toPhase)}
	}
	if actorID == "" || reason == "" {
		return nil, &engine.ConfigurationError{Reason: "override requires actor_id and reason"}
	}
	unlock := s.locks.Lock(accountID)
	defer unlock()

	acct, err := s.Repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, &engine.ConfigurationError{Reason: fmt.Sprintf("account %d not found", accountID)}
	}
	if acct.Phase == toPhase {
		return nil, &engine.ConfigurationError{Reason: fmt.Sprintf("account already in phase %s", toPhase)}
	}

	now := s.now()
	transition := &models.PhaseTransition{
		RecordID:   uuid.NewString(),
		AccountID:  acct.ID,
		FromPhase:  acct.Phase,
		ToPhase:    toPhase,
		Reason:     reason,
		Manual:     true,
		ActorID:    actorID,
		OccurredAt: now,
	}
	if err := s.Repo.InsertPhaseTransition(ctx, transition); err != nil {
		return nil, err
	}

	acct.Phase = toPhase
	switch toPhase {
	case models.PhaseFailed:
		acct.Status = models.StatusDisqualified
	default:
		// A manual move out of FAILED reinstates the account.
		if acct.Status == models.StatusDisqualified {
			acct.Status = models.StatusActive
		}
	}
	if err := s.Repo.SaveAccount(ctx, acct); err != nil {
		return nil, err
	}
	if err := s.audit(ctx, acct.ID, actorID, "force_phase", reason); err != nil {
		return nil, err
	}

	if s.Stream != nil {
		s.Stream.Publish(stream.Event{Kind: stream.KindPhaseTransition, AccountID: acct.ID, Payload: transition, At: now})
	}
	if s.Logger != nil {
		s.Logger.Info("manual phase override",
			zap.Uint64("account_id", acct.ID),
			zap.String("to_phase", toPhase),
			zap.String("actor_id", actorID),
		)
	}
	return transition, nil
}

// ForceStatus sets the account status directly, for pausing, closing or
// reinstating an account outside the automatic rules.
func (s *AdminService) ForceStatus(ctx context.Context, accountID uint64, status, actorID, reason string) error {
	if !validStatuses[status] {
		return &engine.ConfigurationError{Reason: fmt.Sprintf("unknown status %q", status)}
	}
	if actorID == "" || reason == "" {
		return &engine.ConfigurationError{Reason: "override requires actor_id and reason"}
	}
	unlock := s.locks.Lock(accountID)
	defer unlock()

	acct, err := s.Repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if acct == nil {
		return &engine.ConfigurationError{Reason: fmt.Sprintf("account %d not found", accountID)}
	}
	if acct.Status == status {
		return nil
	}

	acct.Status = status
	if err := s.Repo.SaveAccount(ctx, acct); err != nil {
		return err
	}
	if err := s.audit(ctx, acct.ID, actorID, "force_status", reason); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("manual status override",
			zap.Uint64("account_id", acct.ID),
			zap.String("status", status),
			zap.String("actor_id", actorID),
		)
	}
	return nil
}

func (s *AdminService) audit(ctx context.Context, accountID uint64, actorID, action, reason string) error {
	return s.Repo.InsertAuditLog(ctx, &models.AuditLog{
		AccountID: accountID,
		ActorID:   actorID,
		Action:    action,
		Reason:    reason,
	})
}
