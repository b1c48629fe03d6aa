package service

import (
	"context"
	"encoding/json"
	"fmt"

	"zyllen/internal/model"
	"zyllen/internal/repository"

	"github.com/google/uuid"
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	ID   uuid.UUID
	Kind string
	Name string
}

// Internal reports whether the actor is a staff user
func (a Actor) Internal() bool {
	return a.Kind == model.KindInternal
}

// Notifier receives realtime events; the websocket hub implements it
type Notifier interface {
	Publish(event string, data interface{})
}

type nopNotifier struct{}

func (nopNotifier) Publish(string, interface{}) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

// Realtime event names
const (
	EventMovementCreated    = "movement.created"
	EventMovementApproved   = "movement.approved"
	EventMovementRejected   = "movement.rejected"
	EventTicketCreated      = "ticket.created"
	EventTicketUpdated      = "ticket.updated"
	EventMaintenanceUpdated = "maintenance.updated"
	EventPurchaseReceived   = "purchase.received"
)

// audit writes one audit row in the caller's transaction
func audit(ctx context.Context, repo repository.AuditRepository, actor *Actor, action, entityType, entityID, entityName string, details interface{}) error {
	payload := "{}"
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
		payload = string(raw)
	}

	entry := &model.AuditLog{
		ActorKind:  model.KindInternal,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    payload,
	}
	if actor != nil {
		id := actor.ID
		entry.UserID = &id
		if actor.Kind != "" {
			entry.ActorKind = actor.Kind
		}
	} else {
		entry.ActorKind = "system"
	}

	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// pageArgs clamps page/limit the same way the HTTP layer does
func pageArgs(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
