/**
 * @description
 * Scheduled archiving sweep. Each tick runs three ordered phases: archiving
 * of accounts held in a prolonged block, unarchiving of matured retention
 * windows, and unblocking of expired block timers. Every transition is
 * idempotent at the account level, so a tick that is cut short by its time
 * budget simply leaves the remaining candidates to the next tick.
 */
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lynx20042010/apiFinance/internal/domain"
	"github.com/lynx20042010/apiFinance/internal/store"
)

const (
	phaseArchiving   = "archivage"
	phaseUnarchiving = "desarchivage"
	phaseUnblocking  = "deblocage"
)

// SweepFailure records one account that could not be transitioned this tick.
type SweepFailure struct {
	CompteID     string `json:"compteId"`
	NumeroCompte string `json:"numeroCompte"`
	Phase        string `json:"phase"`
	Error        string `json:"error"`
}

// SweepReport summarizes one sweep tick.
type SweepReport struct {
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Archived   int            `json:"archived"`
	Unarchived int            `json:"unarchived"`
	Unblocked  int            `json:"unblocked"`
	Failures   []SweepFailure `json:"failures,omitempty"`
	TimedOut   bool           `json:"timedOut"`
}

// Sweeper runs the three-phase archiving sweep over the account store.
type Sweeper struct {
	svc    *AccountService
	repo   store.AccountRepository
	logger *slog.Logger
	budget time.Duration
	now    func() time.Time
}

// NewSweeper creates a sweeper with the given wall-clock budget per tick.
// A zero budget means no limit.
func NewSweeper(svc *AccountService, repo store.AccountRepository, logger *slog.Logger, budget time.Duration) *Sweeper {
	return &Sweeper{
		svc:    svc,
		repo:   repo,
		logger: logger,
		budget: budget,
		now:    time.Now,
	}
}

// Run executes one sweep tick. A failed candidate query aborts the tick with
// an error; a failure on an individual account is recorded in the report and
// the sweep moves on.
func (w *Sweeper) Run(ctx context.Context) (*SweepReport, error) {
	start := w.now()
	report := &SweepReport{StartedAt: start}

	if w.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.budget)
		defer cancel()
	}

	w.logger.Info("archiving sweep started")

	// Phase 1: archive accounts blocked indefinitely for longer than the
	// prolonged-block threshold.
	cutoff := start.Add(-time.Duration(domain.AutoArchiveAfterDays) * 24 * time.Hour)
	candidates, err := w.repo.ListIndefinitelyBlockedSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("listing archiving candidates: %w", err)
	}
	ok := w.runPhase(ctx, report, phaseArchiving, candidates,
		func(a *domain.Account, now time.Time) bool { return a.EligibleForAutoArchive(now) },
		w.svc.AutoArchive, &report.Archived)

	// Phase 2: restore accounts whose retention window has elapsed.
	if ok {
		candidates, err = w.repo.ListArchivedWithExpiredRetention(ctx, w.now())
		if err != nil {
			return nil, fmt.Errorf("listing unarchiving candidates: %w", err)
		}
		ok = w.runPhase(ctx, report, phaseUnarchiving, candidates,
			func(a *domain.Account, now time.Time) bool { return a.EligibleForAutoUnarchive(now) },
			w.svc.AutoUnarchive, &report.Unarchived)
	}

	// Phase 3: lift blocks whose expiry has passed.
	if ok {
		candidates, err = w.repo.ListBlockedWithExpiredTimer(ctx, w.now())
		if err != nil {
			return nil, fmt.Errorf("listing unblocking candidates: %w", err)
		}
		w.runPhase(ctx, report, phaseUnblocking, candidates,
			func(a *domain.Account, now time.Time) bool { return a.EligibleForAutoUnblock(now) },
			w.svc.AutoUnblock, &report.Unblocked)
	}

	report.FinishedAt = w.now()
	w.logger.Info("archiving sweep finished",
		"archived", report.Archived,
		"unarchived", report.Unarchived,
		"unblocked", report.Unblocked,
		"failures", len(report.Failures),
		"timed_out", report.TimedOut,
		"duration", report.FinishedAt.Sub(report.StartedAt).String())
	return report, nil
}

// runPhase applies one transition to each candidate. Eligibility is
// re-checked in memory before mutating, and the guarded status update catches
// anything the candidate query missed. Returns false when the tick's budget
// ran out.
func (w *Sweeper) runPhase(
	ctx context.Context,
	report *SweepReport,
	phase string,
	candidates []domain.Account,
	eligible func(*domain.Account, time.Time) bool,
	transition func(context.Context, *domain.Account) (*domain.Account, error),
	counter *int,
) bool {
	for i := range candidates {
		if ctx.Err() != nil {
			report.TimedOut = true
			w.logger.Warn("sweep budget exhausted", "phase", phase, "remaining", len(candidates)-i)
			return false
		}

		account := &candidates[i]
		if !eligible(account, w.now()) {
			continue
		}

		if _, err := transition(ctx, account); err != nil {
			// A status conflict means another writer already moved this
			// account; either way the next tick re-evaluates it.
			report.Failures = append(report.Failures, SweepFailure{
				CompteID:     account.ID,
				NumeroCompte: account.NumeroCompte,
				Phase:        phase,
				Error:        err.Error(),
			})
			w.logger.Error("sweep transition failed",
				"phase", phase, "compte_id", account.ID, "error", err)
			continue
		}
		*counter++
	}
	return true
}
