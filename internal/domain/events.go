/**
 * @description
 * Audit event published after every successful lifecycle transition.
 */
package domain

import "time"

// Trigger identifies what initiated a transition.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// LifecycleEvent is the audit record for one status transition.
type LifecycleEvent struct {
	CompteID     string        `json:"compteId"`
	NumeroCompte string        `json:"numeroCompte"`
	FromStatut   AccountStatus `json:"fromStatut"`
	ToStatut     AccountStatus `json:"toStatut"`
	Motif        string        `json:"motif"`
	TriggeredBy  Trigger       `json:"triggeredBy"`
	OccurredAt   time.Time     `json:"occurredAt"`
}

// RoutingKey returns the topic routing key for the event.
func (e LifecycleEvent) RoutingKey() string {
	return "compte." + string(e.ToStatut)
}
