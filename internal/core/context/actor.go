// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// SystemActor is recorded on movements produced by background jobs.
const SystemActor = "system"

// Actor identifies who triggered an inventory or order change.
// Authentication lives outside this module; the HTTP layer only forwards the resolved identity.
type Actor struct {
	UserID string
	Name   string
}

type actorContextKey struct{}

// WithActor adds Actor to context.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// GetActor returns Actor from context or nil.
func GetActor(ctx context.Context) *Actor {
	if v, ok := ctx.Value(actorContextKey{}).(*Actor); ok {
		return v
	}
	return nil
}

// ActorID returns the acting user id, or SystemActor when none is set.
func ActorID(ctx context.Context) string {
	if a := GetActor(ctx); a != nil && a.UserID != "" {
		return a.UserID
	}
	return SystemActor
}
