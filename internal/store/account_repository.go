/**
 * @description
 * PostgreSQL implementation of the account record store. Raw SQL over a
 * pgxpool; timer eligibility predicates are expressed against the JSONB
 * metadata column so candidate scans stay narrow.
 */
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lynx20042010/apiFinance/internal/domain"
)

// PostgresAccountRepository is the pgx-backed AccountRepository.
type PostgresAccountRepository struct {
	db *pgxpool.Pool
}

// NewPostgresAccountRepository creates a new repository.
func NewPostgresAccountRepository(db *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

const accountColumns = `
	id, client_id, numero_compte, type, statut, solde::text, devise, metadata, created_at, updated_at
`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a        domain.Account
		solde    string
		metaJSON []byte
	)
	err := row.Scan(&a.ID, &a.ClientID, &a.NumeroCompte, &a.Type, &a.Statut,
		&solde, &a.Devise, &metaJSON, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	a.Solde, err = decimal.NewFromString(solde)
	if err != nil {
		return nil, err
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &a.Metadata); err != nil {
			return nil, err
		}
	}
	if a.Metadata == nil {
		a.Metadata = domain.Metadata{}
	}
	return &a, nil
}

func (r *PostgresAccountRepository) collect(ctx context.Context, query string, args ...interface{}) ([]domain.Account, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// CreateAccount inserts a new account row.
func (r *PostgresAccountRepository) CreateAccount(ctx context.Context, a *domain.Account) error {
	metaJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO comptes (id, client_id, numero_compte, type, statut, solde, devise, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
	`
	_, err = r.db.Exec(ctx, query,
		a.ID, a.ClientID, a.NumeroCompte, a.Type, a.Statut, a.Solde.String(), a.Devise, metaJSON)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrNumeroCompteTaken
		}
		return err
	}
	return nil
}

// FindByRef retrieves an account by UUID or by numero de compte.
func (r *PostgresAccountRepository) FindByRef(ctx context.Context, ref string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM comptes WHERE id::text = $1 OR numero_compte = $1`
	a, err := scanAccount(r.db.QueryRow(ctx, query, ref))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return a, nil
}

// ListAccounts returns accounts, optionally filtered by status.
func (r *PostgresAccountRepository) ListAccounts(ctx context.Context, statut domain.AccountStatus, limit, offset int) ([]domain.Account, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	if statut == "" {
		query := `SELECT ` + accountColumns + ` FROM comptes ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		return r.collect(ctx, query, limit, offset)
	}
	query := `SELECT ` + accountColumns + ` FROM comptes WHERE statut = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.collect(ctx, query, statut, limit, offset)
}

// ListIndefinitelyBlockedSince finds savings accounts blocked without an
// expiry whose block started on or before the cutoff. These are the
// prolonged-block archiving candidates.
func (r *PostgresAccountRepository) ListIndefinitelyBlockedSince(ctx context.Context, cutoff time.Time) ([]domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM comptes
		WHERE type = 'epargne'
		  AND statut = 'bloque'
		  AND metadata->>'dateBlocage' IS NOT NULL
		  AND (metadata->>'dateBlocage')::timestamptz <= $1
		  AND metadata->>'dateFinBlocage' IS NULL
	`
	return r.collect(ctx, query, cutoff)
}

// ListBlockedWithExpiredTimer finds savings accounts whose block expiry has
// passed. These are the automatic unblocking candidates.
func (r *PostgresAccountRepository) ListBlockedWithExpiredTimer(ctx context.Context, now time.Time) ([]domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM comptes
		WHERE type = 'epargne'
		  AND statut = 'bloque'
		  AND metadata->>'dateFinBlocage' IS NOT NULL
		  AND (metadata->>'dateFinBlocage')::timestamptz <= $1
	`
	return r.collect(ctx, query, now)
}

// ListArchivedWithExpiredRetention finds savings accounts whose archive
// retention window has elapsed. These are the unarchiving candidates.
func (r *PostgresAccountRepository) ListArchivedWithExpiredRetention(ctx context.Context, now time.Time) ([]domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM comptes
		WHERE type = 'epargne'
		  AND statut = 'archive'
		  AND metadata->>'dateFinArchivage' IS NOT NULL
		  AND (metadata->>'dateFinArchivage')::timestamptz <= $1
	`
	return r.collect(ctx, query, now)
}

// UpdateStatusIfCurrent writes the new status and metadata only if the row's
// status still equals expected. Zero rows affected means another writer got
// there first; the caller re-observes on its next read.
func (r *PostgresAccountRepository) UpdateStatusIfCurrent(ctx context.Context, id string, expected, next domain.AccountStatus, metadata domain.Metadata) error {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE comptes
		SET statut = $1, metadata = $2::jsonb, updated_at = NOW()
		WHERE id = $3 AND statut = $4
	`
	tag, err := r.db.Exec(ctx, query, next, metaJSON, id, expected)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}
