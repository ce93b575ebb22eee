package models

import "time"

type PickupEventType string

const (
	EventPickupCreated  PickupEventType = "created"
	EventStatusChanged  PickupEventType = "status_changed"
	EventClaimRequested PickupEventType = "claim_requested"
)

// PickupEvent announces a pickup lifecycle change that should trigger a
// pricing update for the pickup's materials.
type PickupEvent struct {
	ID         string          `json:"id"`
	PickupID   string          `json:"pickupId"`
	Type       PickupEventType `json:"type"`
	Status     PickupStatus    `json:"status"`
	OccurredAt time.Time       `json:"occurredAt"`
}

func NewPickupEvent(pickup *Pickup, eventType PickupEventType, now time.Time) PickupEvent {
	return PickupEvent{
		ID:         NewID(),
		PickupID:   pickup.ID,
		Type:       eventType,
		Status:     pickup.Status,
		OccurredAt: now,
	}
}
