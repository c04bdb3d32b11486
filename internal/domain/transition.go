/**
 * @description
 * The account lifecycle transition engine. Every transition is a total
 * function of (current account, caller-supplied reason/duration, clock):
 * it validates preconditions, computes the resulting status and metadata,
 * and returns an updated copy of the account or a typed error. No I/O.
 *
 * Both the interactive API and the unattended sweep go through these
 * functions, so the rules live in exactly one place. Timers are symmetric:
 * set on entry, fully cleared on exit.
 */
package domain

import (
	"fmt"
	"time"
)

const (
	// Manual block duration bounds, in days.
	BlockDurationMinDays = 1
	BlockDurationMaxDays = 365

	// Archive retention bounds and default, in days (1 to 7 years, 5 default).
	ArchiveDurationMinDays     = 365
	ArchiveDurationMaxDays     = 2555
	ArchiveDurationDefaultDays = 1825

	// An indefinite block older than this is archived by the sweep.
	AutoArchiveAfterDays = 30

	reasonMaxLen = 255
)

func validateReason(reason string) error {
	if reason == "" {
		return NewValidationError("motif", "le motif est obligatoire")
	}
	if len(reason) > reasonMaxLen {
		return NewValidationError("motif", "le motif ne peut pas dépasser 255 caractères")
	}
	return nil
}

// Block suspends a savings account. durationDays == 0 means no automatic
// expiry: the block only ends through a manual unblock, or through the
// prolonged-block archiving rule after AutoArchiveAfterDays.
//
// Closed and archived accounts cannot be blocked: a closed account is only
// ever mutated by the archive transition, and blocking an archived account
// would capture "archive" as the restore target.
func Block(a Account, reason string, durationDays int, now time.Time) (Account, error) {
	if err := validateReason(reason); err != nil {
		return Account{}, err
	}
	if durationDays != 0 && (durationDays < BlockDurationMinDays || durationDays > BlockDurationMaxDays) {
		return Account{}, NewValidationError("dureeBlocage",
			fmt.Sprintf("la durée de blocage doit être comprise entre %d et %d jours", BlockDurationMinDays, BlockDurationMaxDays))
	}
	if !a.IsEpargne() {
		return Account{}, NewError(CodeOperationNotAllowed,
			"le blocage n'est autorisé que pour les comptes épargne",
			map[string]interface{}{"compteId": a.ID, "type": a.Type, "typeRequis": TypeEpargne})
	}
	if a.Statut == StatusBlocked {
		return Account{}, NewError(CodeAlreadyBlocked,
			"le compte est déjà bloqué",
			map[string]interface{}{"compteId": a.ID, "statut": a.Statut})
	}
	if a.Statut == StatusClosed || a.Statut == StatusArchived {
		return Account{}, NewError(CodeOperationNotAllowed,
			"le blocage n'est pas autorisé pour un compte fermé ou archivé",
			map[string]interface{}{"compteId": a.ID, "statut": a.Statut})
	}

	t := Timer{
		Reason:       reason,
		ActivatedAt:  now,
		DurationDays: durationDays,
		StatusBefore: a.Statut,
	}
	if durationDays > 0 {
		t.ExpiresAt = now.Add(time.Duration(durationDays) * 24 * time.Hour)
	}

	a.Metadata = EncodeBlockTimer(a.Metadata, t)
	a.Statut = StatusBlocked
	return a, nil
}

// Unblock restores a blocked account to the status captured when it was
// blocked (active when absent) and clears every block timer field.
func Unblock(a Account, reason string, now time.Time) (Account, error) {
	if err := validateReason(reason); err != nil {
		return Account{}, err
	}
	if a.Statut != StatusBlocked {
		return Account{}, NewError(CodeNotBlocked,
			"le compte n'est pas bloqué",
			map[string]interface{}{"compteId": a.ID, "statut": a.Statut})
	}

	restore := StatusActive
	if t, ok := DecodeBlockTimer(a.Metadata); ok && t.StatusBefore.Valid() {
		restore = t.StatusBefore
	}

	a.Metadata = ClearBlockTimer(a.Metadata, reason, now)
	a.Statut = restore
	return a, nil
}

// Archive moves a closed account into long-term retention. durationDays == 0
// selects the default retention; explicit values are bounded to 1-7 years.
func Archive(a Account, reason string, durationDays int, now time.Time) (Account, error) {
	if err := validateReason(reason); err != nil {
		return Account{}, err
	}
	if durationDays == 0 {
		durationDays = ArchiveDurationDefaultDays
	}
	if durationDays < ArchiveDurationMinDays || durationDays > ArchiveDurationMaxDays {
		return Account{}, NewValidationError("dureeArchivage",
			fmt.Sprintf("la durée d'archivage doit être comprise entre %d et %d jours", ArchiveDurationMinDays, ArchiveDurationMaxDays))
	}
	if a.Statut == StatusArchived {
		return Account{}, NewError(CodeArchiveNotAllowed,
			"le compte est déjà archivé",
			map[string]interface{}{"compteId": a.ID, "statut": a.Statut})
	}
	if a.Statut != StatusClosed {
		return Account{}, NewError(CodeOperationNotAllowed,
			"l'archivage n'est autorisé que pour les comptes fermés",
			map[string]interface{}{"compteId": a.ID, "statut": a.Statut, "statutRequis": StatusClosed})
	}

	a.Metadata = EncodeArchiveTimer(a.Metadata, Timer{
		Reason:       reason,
		ActivatedAt:  now,
		DurationDays: durationDays,
		ExpiresAt:    now.Add(time.Duration(durationDays) * 24 * time.Hour),
		StatusBefore: StatusClosed,
	})
	a.Statut = StatusArchived
	return a, nil
}

// AutoArchive archives a savings account held in a prolonged indefinite
// block. The restore target carries over transitively from the block timer:
// the account unarchives to its true pre-block status, never to "bloque".
// The block timer is cleared in the same step so at most one timer exists.
func AutoArchive(a Account, reason string, now time.Time) (Account, error) {
	if err := validateReason(reason); err != nil {
		return Account{}, err
	}
	if !a.EligibleForAutoArchive(now) {
		return Account{}, NewError(CodeArchiveNotAllowed,
			"le compte n'est pas éligible à l'archivage automatique",
			map[string]interface{}{"compteId": a.ID, "statut": a.Statut})
	}

	restore := StatusActive
	blockTimer, _ := DecodeBlockTimer(a.Metadata)
	if blockTimer.StatusBefore.Valid() && blockTimer.StatusBefore != StatusBlocked && blockTimer.StatusBefore != StatusArchived {
		restore = blockTimer.StatusBefore
	}

	meta := clearTimer(a.Metadata, blockKeys)
	a.Metadata = encodeTimer(meta, archiveKeys, Timer{
		Reason:       reason,
		ActivatedAt:  now,
		DurationDays: ArchiveDurationDefaultDays,
		ExpiresAt:    now.Add(ArchiveDurationDefaultDays * 24 * time.Hour),
		StatusBefore: restore,
	})
	a.Statut = StatusArchived
	return a, nil
}

// Unarchive restores an archived account to the status captured when it was
// archived (closed when absent) and clears every archive timer field.
func Unarchive(a Account, reason string, now time.Time) (Account, error) {
	if err := validateReason(reason); err != nil {
		return Account{}, err
	}
	if a.Statut != StatusArchived {
		return Account{}, NewError(CodeUnarchiveNotAllowed,
			"le compte n'est pas archivé",
			map[string]interface{}{"compteId": a.ID, "statut": a.Statut})
	}

	restore := StatusClosed
	if t, ok := DecodeArchiveTimer(a.Metadata); ok && t.StatusBefore.Valid() {
		restore = t.StatusBefore
	}

	a.Metadata = ClearArchiveTimer(a.Metadata, reason, now)
	a.Statut = restore
	return a, nil
}

// EligibleForAutoArchive reports whether the sweep's archiving phase should
// pick this account up: a savings account under an indefinite block that
// started more than AutoArchiveAfterDays ago. Blocks with an expiry belong to
// the unblocking phase instead.
func (a *Account) EligibleForAutoArchive(now time.Time) bool {
	if !a.IsEpargne() || a.Statut != StatusBlocked {
		return false
	}
	t, ok := DecodeBlockTimer(a.Metadata)
	if !ok || t.HasExpiry() {
		return false
	}
	return !t.ActivatedAt.Add(AutoArchiveAfterDays * 24 * time.Hour).After(now)
}

// EligibleForAutoUnblock reports whether the block timer has matured.
func (a *Account) EligibleForAutoUnblock(now time.Time) bool {
	if !a.IsEpargne() || a.Statut != StatusBlocked {
		return false
	}
	t, ok := DecodeBlockTimer(a.Metadata)
	return ok && t.Expired(now)
}

// EligibleForAutoUnarchive reports whether the retention period has elapsed.
func (a *Account) EligibleForAutoUnarchive(now time.Time) bool {
	if !a.IsEpargne() || a.Statut != StatusArchived {
		return false
	}
	t, ok := DecodeArchiveTimer(a.Metadata)
	return ok && t.Expired(now)
}
