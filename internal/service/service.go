package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/events"
)

// Actor is the caller of an operation: a signed-in user, a guest session,
// or both while a guest cart is being merged.
type Actor struct {
	UserID    *uuid.UUID
	Role      string
	SessionID string
}

func (a Actor) IsStaff() bool {
	return a.Role == models.RoleStaff || a.Role == models.RoleAdmin
}

func (a Actor) Authenticated() bool {
	return a.UserID != nil
}

// Clock returns the current time; nil means time.Now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

func emit(ctx context.Context, p events.Publisher, topic, key, typ string, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["type"] = typ
	events.Emit(ctx, p, topic, key, payload)
}
