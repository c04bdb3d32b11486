package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lynx20042010/apiFinance/internal/domain"
	"github.com/lynx20042010/apiFinance/internal/store"
)

// memoryRepo is an in-memory AccountRepository mirroring the candidate
// predicates of the SQL implementation.
type memoryRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account

	listErr   error
	updateErr map[string]error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		accounts:  make(map[string]*domain.Account),
		updateErr: make(map[string]error),
	}
}

func (r *memoryRepo) put(a domain.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := a
	copied.Metadata = a.Metadata.Clone()
	r.accounts[a.ID] = &copied
}

func (r *memoryRepo) get(id string) domain.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.accounts[id]
}

func (r *memoryRepo) CreateAccount(ctx context.Context, a *domain.Account) error {
	r.put(*a)
	return nil
}

func (r *memoryRepo) FindByRef(ctx context.Context, ref string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ID == ref || a.NumeroCompte == ref {
			copied := *a
			copied.Metadata = a.Metadata.Clone()
			return &copied, nil
		}
	}
	return nil, store.ErrAccountNotFound
}

func (r *memoryRepo) ListAccounts(ctx context.Context, statut domain.AccountStatus, limit, offset int) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Account
	for _, a := range r.accounts {
		if statut == "" || a.Statut == statut {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListIndefinitelyBlockedSince(ctx context.Context, cutoff time.Time) ([]domain.Account, error) {
	return r.list(func(a *domain.Account) bool {
		if !a.IsEpargne() || a.Statut != domain.StatusBlocked {
			return false
		}
		t, ok := domain.DecodeBlockTimer(a.Metadata)
		return ok && !t.HasExpiry() && !t.ActivatedAt.After(cutoff)
	})
}

func (r *memoryRepo) ListBlockedWithExpiredTimer(ctx context.Context, now time.Time) ([]domain.Account, error) {
	return r.list(func(a *domain.Account) bool {
		if !a.IsEpargne() || a.Statut != domain.StatusBlocked {
			return false
		}
		t, ok := domain.DecodeBlockTimer(a.Metadata)
		return ok && t.Expired(now)
	})
}

func (r *memoryRepo) ListArchivedWithExpiredRetention(ctx context.Context, now time.Time) ([]domain.Account, error) {
	return r.list(func(a *domain.Account) bool {
		if !a.IsEpargne() || a.Statut != domain.StatusArchived {
			return false
		}
		t, ok := domain.DecodeArchiveTimer(a.Metadata)
		return ok && t.Expired(now)
	})
}

func (r *memoryRepo) list(match func(*domain.Account) bool) ([]domain.Account, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Account
	for _, a := range r.accounts {
		if match(a) {
			copied := *a
			copied.Metadata = a.Metadata.Clone()
			out = append(out, copied)
		}
	}
	return out, nil
}

func (r *memoryRepo) UpdateStatusIfCurrent(ctx context.Context, id string, expected, next domain.AccountStatus, metadata domain.Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.updateErr[id]; err != nil {
		return err
	}
	a, ok := r.accounts[id]
	if !ok || a.Statut != expected {
		return store.ErrStatusConflict
	}
	a.Statut = next
	a.Metadata = metadata.Clone()
	return nil
}

func newTestSweeper(repo *memoryRepo, clock func() time.Time) (*Sweeper, *auditStub) {
	audit := &auditStub{}
	svc := NewAccountService(repo, &mirrorStub{}, audit, slog.Default())
	svc.now = clock
	sweeper := NewSweeper(svc, repo, slog.Default(), 0)
	sweeper.now = clock
	return sweeper, audit
}

func seedSavings(t *testing.T, repo *memoryRepo, id string, statut domain.AccountStatus) domain.Account {
	t.Helper()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := domain.NewAccount(id, "cli-"+id, domain.TypeEpargne, decimal.NewFromInt(100), "XOF", created)
	a.Statut = statut
	repo.put(*a)
	return *a
}

func TestSweep_UnblocksExpiredTimedBlock(t *testing.T) {
	repo := newMemoryRepo()
	blockedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	a := seedSavings(t, repo, "cpt-1", domain.StatusActive)
	blocked, err := domain.Block(a, "fraude", 30, blockedAt)
	if err != nil {
		t.Fatalf("Block returned error: %v", err)
	}
	repo.put(blocked)

	clock := blockedAt.Add(31 * 24 * time.Hour)
	sweeper, audit := newTestSweeper(repo, func() time.Time { return clock })

	report, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Unblocked != 1 || report.Archived != 0 || report.Unarchived != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if got := repo.get("cpt-1"); got.Statut != domain.StatusActive {
		t.Fatalf("expected statut actif, got %q", got.Statut)
	}
	if len(audit.events) != 1 || audit.events[0].TriggeredBy != domain.TriggerScheduled {
		t.Fatalf("expected one scheduled audit event, got %+v", audit.events)
	}
}

func TestSweep_ArchivesProlongedIndefiniteBlock(t *testing.T) {
	repo := newMemoryRepo()
	blockedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	a := seedSavings(t, repo, "cpt-1", domain.StatusActive)
	blocked, err := domain.Block(a, "fraude", 0, blockedAt)
	if err != nil {
		t.Fatalf("Block returned error: %v", err)
	}
	repo.put(blocked)

	clock := blockedAt.Add(31 * 24 * time.Hour)
	sweeper, _ := newTestSweeper(repo, func() time.Time { return clock })

	report, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Archived != 1 {
		t.Fatalf("expected one archived account, got %+v", report)
	}
	got := repo.get("cpt-1")
	if got.Statut != domain.StatusArchived {
		t.Fatalf("expected statut archive, got %q", got.Statut)
	}
	if _, ok := domain.DecodeBlockTimer(got.Metadata); ok {
		t.Fatal("expected block timer cleared by auto archive")
	}
}

func TestSweep_TimedBlockIsNeverArchived(t *testing.T) {
	repo := newMemoryRepo()
	blockedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	a := seedSavings(t, repo, "cpt-1", domain.StatusActive)
	blocked, err := domain.Block(a, "fraude", 60, blockedAt)
	if err != nil {
		t.Fatalf("Block returned error: %v", err)
	}
	repo.put(blocked)

	// 45 days in: past the prolonged-block threshold but before the block
	// expiry. The account must stay blocked, not get archived.
	clock := blockedAt.Add(45 * 24 * time.Hour)
	sweeper, _ := newTestSweeper(repo, func() time.Time { return clock })

	report, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Archived != 0 || report.Unblocked != 0 {
		t.Fatalf("expected untouched account, got %+v", report)
	}
	if got := repo.get("cpt-1"); got.Statut != domain.StatusBlocked {
		t.Fatalf("expected statut bloque, got %q", got.Statut)
	}
}

func TestSweep_UnarchivesMaturedRetention(t *testing.T) {
	repo := newMemoryRepo()
	archivedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	a := seedSavings(t, repo, "cpt-1", domain.StatusClosed)
	archived, err := domain.Archive(a, "fin de relation", 365, archivedAt)
	if err != nil {
		t.Fatalf("Archive returned error: %v", err)
	}
	repo.put(archived)

	clock := archivedAt.Add(366 * 24 * time.Hour)
	sweeper, _ := newTestSweeper(repo, func() time.Time { return clock })

	report, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Unarchived != 1 {
		t.Fatalf("expected one unarchived account, got %+v", report)
	}
	if got := repo.get("cpt-1"); got.Statut != domain.StatusClosed {
		t.Fatalf("expected statut ferme restored, got %q", got.Statut)
	}
}

func TestSweep_IsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	blockedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	a := seedSavings(t, repo, "cpt-1", domain.StatusActive)
	blocked, err := domain.Block(a, "fraude", 30, blockedAt)
	if err != nil {
		t.Fatalf("Block returned error: %v", err)
	}
	repo.put(blocked)

	clock := blockedAt.Add(31 * 24 * time.Hour)
	sweeper, _ := newTestSweeper(repo, func() time.Time { return clock })

	if _, err := sweeper.Run(context.Background()); err != nil {
		t.Fatalf("first Run returned error: %v", err)
	}
	second, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}
	if second.Archived != 0 || second.Unarchived != 0 || second.Unblocked != 0 {
		t.Fatalf("expected second tick to be a no-op, got %+v", second)
	}
}

func TestSweep_FaultIsolationBetweenAccounts(t *testing.T) {
	repo := newMemoryRepo()
	blockedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for _, id := range []string{"cpt-1", "cpt-2"} {
		a := seedSavings(t, repo, id, domain.StatusActive)
		blocked, err := domain.Block(a, "fraude", 30, blockedAt)
		if err != nil {
			t.Fatalf("Block returned error: %v", err)
		}
		repo.put(blocked)
	}
	repo.updateErr["cpt-1"] = errors.New("connection reset")

	clock := blockedAt.Add(31 * 24 * time.Hour)
	sweeper, _ := newTestSweeper(repo, func() time.Time { return clock })

	report, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Unblocked != 1 {
		t.Fatalf("expected the healthy account to be unblocked, got %+v", report)
	}
	if len(report.Failures) != 1 || report.Failures[0].CompteID != "cpt-1" {
		t.Fatalf("expected one failure for cpt-1, got %+v", report.Failures)
	}
	if report.Failures[0].Phase != phaseUnblocking {
		t.Fatalf("expected failure recorded in the unblocking phase, got %q", report.Failures[0].Phase)
	}
	if got := repo.get("cpt-2"); got.Statut != domain.StatusActive {
		t.Fatalf("expected cpt-2 unblocked, got %q", got.Statut)
	}
}

func TestSweep_CandidateQueryFailureAbortsTick(t *testing.T) {
	repo := newMemoryRepo()
	repo.listErr = errors.New("database down")

	sweeper, _ := newTestSweeper(repo, time.Now)

	if _, err := sweeper.Run(context.Background()); err == nil {
		t.Fatal("expected the tick to abort on a candidate query failure")
	}
}

func TestSweep_BudgetExhaustionStopsEarly(t *testing.T) {
	repo := newMemoryRepo()
	blockedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	a := seedSavings(t, repo, "cpt-1", domain.StatusActive)
	blocked, err := domain.Block(a, "fraude", 30, blockedAt)
	if err != nil {
		t.Fatalf("Block returned error: %v", err)
	}
	repo.put(blocked)

	clock := blockedAt.Add(31 * 24 * time.Hour)
	audit := &auditStub{}
	svc := NewAccountService(repo, &mirrorStub{}, audit, slog.Default())
	svc.now = func() time.Time { return clock }
	sweeper := NewSweeper(svc, repo, slog.Default(), time.Nanosecond)
	sweeper.now = func() time.Time { return clock }

	report, err := sweeper.Run(context.Background())
	if err != nil {
		// The candidate query itself may fail once the deadline passes; both
		// outcomes leave the account for the next tick.
		return
	}
	if !report.TimedOut {
		t.Fatalf("expected the report to flag the exhausted budget, got %+v", report)
	}
	if got := repo.get("cpt-1"); got.Statut != domain.StatusBlocked {
		t.Fatalf("expected the account left for the next tick, got %q", got.Statut)
	}
}
