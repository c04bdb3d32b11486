/**
 * @description
 * Core business logic for account lifecycle management. The service loads an
 * account, runs the domain transition, persists the result through the
 * status-guarded update, and emits an audit event. Both the HTTP handlers and
 * the archiving sweep call into this layer, so the persistence discipline
 * (never write a status without the expected-status guard) lives here once.
 */
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lynx20042010/apiFinance/internal/domain"
	"github.com/lynx20042010/apiFinance/internal/store"
)

// System-generated reasons used by the scheduled path.
const (
	ReasonAutoArchive   = "Archivage automatique suite au blocage prolongé"
	ReasonAutoUnarchive = "Désarchivage automatique suite à expiration de la période d'archivage"
	ReasonAutoUnblock   = "Déblocage automatique suite à expiration de la période de blocage"
)

const createAccountAttempts = 3

// AuditLogger records lifecycle transitions. Implementations are fire and
// forget: recording never blocks or fails the transition.
type AuditLogger interface {
	Record(ctx context.Context, event domain.LifecycleEvent)
}

// AccountService provides account creation, lookup and lifecycle transitions.
type AccountService struct {
	repo   store.AccountRepository
	mirror store.ArchiveMirror
	audit  AuditLogger
	logger *slog.Logger
	now    func() time.Time
}

// NewAccountService creates a new instance of AccountService.
func NewAccountService(repo store.AccountRepository, mirror store.ArchiveMirror, audit AuditLogger, logger *slog.Logger) *AccountService {
	return &AccountService{
		repo:   repo,
		mirror: mirror,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// CreateAccountInput defines the required input for opening an account.
type CreateAccountInput struct {
	ClientID     string
	Type         domain.AccountType
	SoldeInitial decimal.Decimal
	Devise       string
}

// CreateAccount opens a new account in active status. The account number is
// generated here; on a uniqueness collision a fresh number is tried.
func (s *AccountService) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	if input.ClientID == "" {
		return nil, domain.NewValidationError("clientId", "l'identifiant du client est obligatoire")
	}
	if !input.Type.Valid() {
		return nil, domain.NewValidationError("type", "le type de compte doit être cheque, courant ou epargne")
	}
	if input.SoldeInitial.IsNegative() {
		return nil, domain.NewValidationError("soldeInitial", "le solde initial ne peut pas être négatif")
	}
	if input.Devise == "" {
		return nil, domain.NewValidationError("devise", "la devise est obligatoire")
	}

	var lastErr error
	for i := 0; i < createAccountAttempts; i++ {
		account := domain.NewAccount(uuid.NewString(), input.ClientID, input.Type, input.SoldeInitial, input.Devise, s.now())
		if err := s.repo.CreateAccount(ctx, account); err != nil {
			if errors.Is(err, store.ErrNumeroCompteTaken) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return account, nil
	}
	return nil, lastErr
}

// GetAccount retrieves an account by UUID or numero de compte.
func (s *AccountService) GetAccount(ctx context.Context, ref string) (*domain.Account, error) {
	account, err := s.repo.FindByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, domain.NewNotFoundError(ref)
		}
		return nil, err
	}
	return account, nil
}

// ListAccounts returns accounts, optionally filtered by status.
func (s *AccountService) ListAccounts(ctx context.Context, statut domain.AccountStatus, limit, offset int) ([]domain.Account, error) {
	if statut != "" && !statut.Valid() {
		return nil, domain.NewValidationError("statut", "statut inconnu")
	}
	return s.repo.ListAccounts(ctx, statut, limit, offset)
}

// Block suspends a savings account, with an optional duration in days.
func (s *AccountService) Block(ctx context.Context, ref, motif string, dureeJours int) (*domain.Account, error) {
	account, err := s.GetAccount(ctx, ref)
	if err != nil {
		return nil, err
	}
	updated, err := domain.Block(*account, motif, dureeJours, s.now())
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, account, updated, motif, domain.TriggerManual)
}

// Unblock lifts a block and restores the pre-block status.
func (s *AccountService) Unblock(ctx context.Context, ref, motif string) (*domain.Account, error) {
	account, err := s.GetAccount(ctx, ref)
	if err != nil {
		return nil, err
	}
	updated, err := domain.Unblock(*account, motif, s.now())
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, account, updated, motif, domain.TriggerManual)
}

// Archive moves a closed account into retention and mirrors it into the
// secondary archival store.
func (s *AccountService) Archive(ctx context.Context, ref, motif string, dureeJours int) (*domain.Account, error) {
	account, err := s.GetAccount(ctx, ref)
	if err != nil {
		return nil, err
	}
	updated, err := domain.Archive(*account, motif, dureeJours, s.now())
	if err != nil {
		return nil, err
	}
	result, err := s.apply(ctx, account, updated, motif, domain.TriggerManual)
	if err != nil {
		return nil, err
	}
	s.mirrorCopy(ctx, result)
	return result, nil
}

// Unarchive restores an archived account and drops the mirrored copy.
func (s *AccountService) Unarchive(ctx context.Context, ref, motif string) (*domain.Account, error) {
	account, err := s.GetAccount(ctx, ref)
	if err != nil {
		return nil, err
	}
	updated, err := domain.Unarchive(*account, motif, s.now())
	if err != nil {
		return nil, err
	}
	result, err := s.apply(ctx, account, updated, motif, domain.TriggerManual)
	if err != nil {
		return nil, err
	}
	s.mirrorDelete(ctx, result.ID)
	return result, nil
}

// AutoArchive is the scheduled variant of Archive for accounts held in a
// prolonged indefinite block. The caller has already selected the account as
// a candidate; the domain transition re-derives eligibility.
func (s *AccountService) AutoArchive(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	updated, err := domain.AutoArchive(*account, ReasonAutoArchive, s.now())
	if err != nil {
		return nil, err
	}
	result, err := s.apply(ctx, account, updated, ReasonAutoArchive, domain.TriggerScheduled)
	if err != nil {
		return nil, err
	}
	s.mirrorCopy(ctx, result)
	return result, nil
}

// AutoUnarchive is the scheduled variant of Unarchive for matured retention
// windows.
func (s *AccountService) AutoUnarchive(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	updated, err := domain.Unarchive(*account, ReasonAutoUnarchive, s.now())
	if err != nil {
		return nil, err
	}
	result, err := s.apply(ctx, account, updated, ReasonAutoUnarchive, domain.TriggerScheduled)
	if err != nil {
		return nil, err
	}
	s.mirrorDelete(ctx, result.ID)
	return result, nil
}

// AutoUnblock is the scheduled variant of Unblock for expired block timers.
func (s *AccountService) AutoUnblock(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	updated, err := domain.Unblock(*account, ReasonAutoUnblock, s.now())
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, account, updated, ReasonAutoUnblock, domain.TriggerScheduled)
}

// apply persists a computed transition with the expected-status guard and
// records the audit event. A zero-row update means a concurrent writer
// already moved the account; that surfaces as STATUS_CONFLICT.
func (s *AccountService) apply(ctx context.Context, current *domain.Account, updated domain.Account, motif string, trigger domain.Trigger) (*domain.Account, error) {
	err := s.repo.UpdateStatusIfCurrent(ctx, current.ID, current.Statut, updated.Statut, updated.Metadata)
	if err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			return nil, domain.NewError(domain.CodeStatusConflict,
				"le statut du compte a changé pendant l'opération",
				map[string]interface{}{"compteId": current.ID, "statutAttendu": current.Statut})
		}
		return nil, err
	}

	if s.audit != nil {
		s.audit.Record(ctx, domain.LifecycleEvent{
			CompteID:     updated.ID,
			NumeroCompte: updated.NumeroCompte,
			FromStatut:   current.Statut,
			ToStatut:     updated.Statut,
			Motif:        motif,
			TriggeredBy:  trigger,
			OccurredAt:   s.now(),
		})
	}
	return &updated, nil
}

func (s *AccountService) mirrorCopy(ctx context.Context, account *domain.Account) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.CopyAccount(ctx, account); err != nil {
		s.logger.Warn("failed to mirror archived compte", "compte_id", account.ID, "error", err)
	}
}

func (s *AccountService) mirrorDelete(ctx context.Context, id string) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.DeleteAccount(ctx, id); err != nil {
		s.logger.Warn("failed to delete mirrored compte", "compte_id", id, "error", err)
	}
}
