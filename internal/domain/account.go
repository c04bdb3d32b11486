/**
 * @description
 * This file defines the core domain model for a bank account (compte) and the
 * closed enums for its type and lifecycle status.
 *
 * @notes
 * - Status and type values are the wire/storage values inherited from the
 *   banking back office ("actif", "bloque", "epargne", ...); the Go constants
 *   give them a closed, typo-proof surface.
 * - Only savings accounts (epargne) participate in block/archive automation.
 */
package domain

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType defines the kind of a bank account.
type AccountType string

const (
	TypeCheque  AccountType = "cheque"
	TypeCourant AccountType = "courant"
	TypeEpargne AccountType = "epargne"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case TypeCheque, TypeCourant, TypeEpargne:
		return true
	}
	return false
}

// AccountStatus defines the lifecycle status of an account.
type AccountStatus string

const (
	StatusActive   AccountStatus = "actif"
	StatusInactive AccountStatus = "inactif"
	StatusBlocked  AccountStatus = "bloque"
	StatusClosed   AccountStatus = "ferme"
	StatusArchived AccountStatus = "archive"
)

// Valid reports whether s is one of the known statuses.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusBlocked, StatusClosed, StatusArchived:
		return true
	}
	return false
}

// Metadata is the free-form key/value side channel attached to an account.
// Timer fields for block/archive transitions live here (see timer.go).
type Metadata map[string]interface{}

// Clone returns a shallow copy of the metadata map. Transitions operate on
// copies so a failed guarded update never leaves a half-mutated account in
// memory.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m)+4)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Account represents a bank account as stored in our own database.
type Account struct {
	ID           string          `json:"id"`
	ClientID     string          `json:"clientId"`
	NumeroCompte string          `json:"numeroCompte"`
	Type         AccountType     `json:"type"`
	Statut       AccountStatus   `json:"statut"`
	Solde        decimal.Decimal `json:"solde"`
	Devise       string          `json:"devise"`
	Metadata     Metadata        `json:"metadata"`
	CreatedAt    time.Time       `json:"dateCreation"`
	UpdatedAt    time.Time       `json:"-"`
}

// IsEpargne reports whether the account is a savings account, the only kind
// subject to block/archive automation.
func (a *Account) IsEpargne() bool {
	return a.Type == TypeEpargne
}

// GenerateNumeroCompte builds a human-facing account number in the
// CPT<year><6 digits> format used since account inception. Uniqueness is
// enforced by the store; callers retry with a fresh number on collision.
func GenerateNumeroCompte(now time.Time) string {
	return fmt.Sprintf("CPT%d%06d", now.Year(), rand.Intn(999999)+1)
}

// NewAccount creates an account in the initial state: active status, fresh
// metadata seeded with the creation snapshot.
func NewAccount(id, clientID string, kind AccountType, solde decimal.Decimal, devise string, now time.Time) *Account {
	return &Account{
		ID:           id,
		ClientID:     clientID,
		NumeroCompte: GenerateNumeroCompte(now),
		Type:         kind,
		Statut:       StatusActive,
		Solde:        solde,
		Devise:       devise,
		Metadata: Metadata{
			"date_creation": now.UTC().Format(time.RFC3339),
			"solde_initial": solde.String(),
			"version":       1,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
