/**
 * @description
 * Codec between the account metadata bag and a typed timer view. A timer is
 * the (reason, activatedAt, durationDays, expiresAt, statusBefore) tuple set
 * by a block or archive transition and cleared in full by the reverse one.
 *
 * The codec is pure: it never touches storage and operates on metadata copies.
 * Reverse transitions must remove exactly the keys the forward transition
 * introduced; partial clears leak stale scheduling fields into later cycles.
 */
package domain

import (
	"encoding/json"
	"time"
)

// Metadata keys for the block timer.
const (
	keyBlockReason       = "motifBlocage"
	keyBlockActivatedAt  = "dateBlocage"
	keyBlockDurationDays = "dureeBlocage"
	keyBlockExpiresAt    = "dateFinBlocage"
	keyStatusBeforeBlock = "statutAvantBlocage"
	keyUnblockReason     = "motifDeblocage"
	keyUnblockedAt       = "dateDeblocage"
)

// Metadata keys for the archive timer.
const (
	keyArchiveReason       = "motifArchivage"
	keyArchiveActivatedAt  = "dateArchivage"
	keyArchiveDurationDays = "dureeArchivage"
	keyArchiveExpiresAt    = "dateFinArchivage"
	keyStatusBeforeArchive = "statutAvantArchivage"
	keyUnarchiveReason     = "motifDesarchivage"
	keyUnarchivedAt        = "dateDesarchivage"
)

type timerKeys struct {
	reason       string
	activatedAt  string
	durationDays string
	expiresAt    string
	statusBefore string
}

var (
	blockKeys = timerKeys{
		reason:       keyBlockReason,
		activatedAt:  keyBlockActivatedAt,
		durationDays: keyBlockDurationDays,
		expiresAt:    keyBlockExpiresAt,
		statusBefore: keyStatusBeforeBlock,
	}
	archiveKeys = timerKeys{
		reason:       keyArchiveReason,
		activatedAt:  keyArchiveActivatedAt,
		durationDays: keyArchiveDurationDays,
		expiresAt:    keyArchiveExpiresAt,
		statusBefore: keyStatusBeforeArchive,
	}
)

// Timer is the typed view of the scheduling fields attached to a block or
// archive transition.
type Timer struct {
	Reason       string
	ActivatedAt  time.Time
	DurationDays int       // 0 means no duration was supplied
	ExpiresAt    time.Time // zero means no automatic expiry
	StatusBefore AccountStatus
}

// HasExpiry reports whether the timer carries an automatic expiry. Without
// one the account only leaves the state through manual intervention or the
// prolonged-block archiving rule.
func (t Timer) HasExpiry() bool {
	return !t.ExpiresAt.IsZero()
}

// Expired reports whether the timer's expiry has passed.
func (t Timer) Expired(now time.Time) bool {
	return t.HasExpiry() && !t.ExpiresAt.After(now)
}

// EncodeBlockTimer returns a copy of meta with the block timer fields set.
func EncodeBlockTimer(meta Metadata, t Timer) Metadata {
	return encodeTimer(meta, blockKeys, t)
}

// DecodeBlockTimer extracts the block timer from meta. The second return is
// false when no block timer is present (no activation timestamp).
func DecodeBlockTimer(meta Metadata) (Timer, bool) {
	return decodeTimer(meta, blockKeys)
}

// ClearBlockTimer returns a copy of meta with exactly the block timer keys
// removed and the unblock trail (reason, timestamp) appended.
func ClearBlockTimer(meta Metadata, reason string, now time.Time) Metadata {
	out := clearTimer(meta, blockKeys)
	out[keyUnblockReason] = reason
	out[keyUnblockedAt] = now.UTC().Format(time.RFC3339)
	return out
}

// EncodeArchiveTimer returns a copy of meta with the archive timer fields set.
func EncodeArchiveTimer(meta Metadata, t Timer) Metadata {
	return encodeTimer(meta, archiveKeys, t)
}

// DecodeArchiveTimer extracts the archive timer from meta.
func DecodeArchiveTimer(meta Metadata) (Timer, bool) {
	return decodeTimer(meta, archiveKeys)
}

// ClearArchiveTimer returns a copy of meta with exactly the archive timer keys
// removed and the unarchive trail appended.
func ClearArchiveTimer(meta Metadata, reason string, now time.Time) Metadata {
	out := clearTimer(meta, archiveKeys)
	out[keyUnarchiveReason] = reason
	out[keyUnarchivedAt] = now.UTC().Format(time.RFC3339)
	return out
}

func encodeTimer(meta Metadata, keys timerKeys, t Timer) Metadata {
	out := meta.Clone()
	out[keys.reason] = t.Reason
	out[keys.activatedAt] = t.ActivatedAt.UTC().Format(time.RFC3339)
	if t.DurationDays > 0 {
		out[keys.durationDays] = t.DurationDays
		out[keys.expiresAt] = t.ExpiresAt.UTC().Format(time.RFC3339)
	}
	out[keys.statusBefore] = string(t.StatusBefore)
	return out
}

func decodeTimer(meta Metadata, keys timerKeys) (Timer, bool) {
	activatedAt, ok := metaTime(meta, keys.activatedAt)
	if !ok {
		return Timer{}, false
	}

	t := Timer{
		Reason:       metaString(meta, keys.reason),
		ActivatedAt:  activatedAt,
		DurationDays: metaInt(meta, keys.durationDays),
	}
	if expiresAt, ok := metaTime(meta, keys.expiresAt); ok {
		t.ExpiresAt = expiresAt
	}
	if s := metaString(meta, keys.statusBefore); s != "" {
		t.StatusBefore = AccountStatus(s)
	}
	return t, true
}

func clearTimer(meta Metadata, keys timerKeys) Metadata {
	out := meta.Clone()
	delete(out, keys.reason)
	delete(out, keys.activatedAt)
	delete(out, keys.durationDays)
	delete(out, keys.expiresAt)
	delete(out, keys.statusBefore)
	return out
}

func metaString(meta Metadata, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

func metaTime(meta Metadata, key string) (time.Time, bool) {
	s := metaString(meta, key)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// metaInt tolerates the numeric shapes a JSONB round trip can produce.
func metaInt(meta Metadata, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return 0
}
