/**
 * @description
 * Interfaces and sentinel errors for the account record store. The service
 * and sweep layers depend on these interfaces; the pgx implementations live
 * alongside in this package.
 */
package store

import (
	"context"
	"errors"
	"time"

	"github.com/lynx20042010/apiFinance/internal/domain"
)

var (
	// ErrAccountNotFound means no account matches the given reference.
	ErrAccountNotFound = errors.New("compte not found")
	// ErrStatusConflict means the guarded update matched no row: the account's
	// status changed between the read and the write.
	ErrStatusConflict = errors.New("compte status changed concurrently")
	// ErrNumeroCompteTaken means the generated account number collided.
	ErrNumeroCompteTaken = errors.New("numero compte already in use")
)

// AccountRepository is the persistent account record store. All status
// mutations go through UpdateStatusIfCurrent; the core never issues a raw
// status write.
type AccountRepository interface {
	CreateAccount(ctx context.Context, a *domain.Account) error
	FindByRef(ctx context.Context, ref string) (*domain.Account, error)
	ListAccounts(ctx context.Context, statut domain.AccountStatus, limit, offset int) ([]domain.Account, error)

	// Sweep candidate queries. Each phase re-derives eligibility from the
	// returned rows; these only narrow the scan.
	ListIndefinitelyBlockedSince(ctx context.Context, cutoff time.Time) ([]domain.Account, error)
	ListBlockedWithExpiredTimer(ctx context.Context, now time.Time) ([]domain.Account, error)
	ListArchivedWithExpiredRetention(ctx context.Context, now time.Time) ([]domain.Account, error)

	// UpdateStatusIfCurrent applies the new status and metadata only when the
	// stored status still equals expected; otherwise ErrStatusConflict.
	UpdateStatusIfCurrent(ctx context.Context, id string, expected, next domain.AccountStatus, metadata domain.Metadata) error
}

// ArchiveMirror is the optional secondary archival store. Both operations are
// best effort from the caller's point of view: failures are logged, never
// surfaced to the transition.
type ArchiveMirror interface {
	CopyAccount(ctx context.Context, a *domain.Account) error
	DeleteAccount(ctx context.Context, id string) error
}
