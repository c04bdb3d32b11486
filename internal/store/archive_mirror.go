/**
 * @description
 * Secondary archival store. On archive the account row is copied into a
 * separate database; on unarchive the copy is deleted. The primary store is
 * always authoritative; this mirror is a best-effort replica and callers
 * treat both operations as fire and forget.
 */
package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lynx20042010/apiFinance/internal/domain"
)

// PostgresArchiveMirror copies archived accounts into a secondary database.
type PostgresArchiveMirror struct {
	db *pgxpool.Pool
}

// NewPostgresArchiveMirror creates a mirror over the secondary pool.
func NewPostgresArchiveMirror(db *pgxpool.Pool) *PostgresArchiveMirror {
	return &PostgresArchiveMirror{db: db}
}

// CopyAccount upserts the account into the archival table. Re-archiving the
// same account overwrites the previous copy.
func (m *PostgresArchiveMirror) CopyAccount(ctx context.Context, a *domain.Account) error {
	metaJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO comptes_archives (id, client_id, numero_compte, type, statut, solde, devise, metadata, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, NOW())
		ON CONFLICT (id) DO UPDATE
		SET statut = EXCLUDED.statut,
		    solde = EXCLUDED.solde,
		    metadata = EXCLUDED.metadata,
		    archived_at = NOW()
	`
	_, err = m.db.Exec(ctx, query,
		a.ID, a.ClientID, a.NumeroCompte, a.Type, a.Statut, a.Solde.String(), a.Devise, metaJSON)
	return err
}

// DeleteAccount removes the mirrored copy after an unarchive.
func (m *PostgresArchiveMirror) DeleteAccount(ctx context.Context, id string) error {
	_, err := m.db.Exec(ctx, `DELETE FROM comptes_archives WHERE id = $1`, id)
	return err
}

// NoopArchiveMirror is wired when no secondary database is configured.
type NoopArchiveMirror struct{}

func (NoopArchiveMirror) CopyAccount(ctx context.Context, a *domain.Account) error { return nil }
func (NoopArchiveMirror) DeleteAccount(ctx context.Context, id string) error       { return nil }
