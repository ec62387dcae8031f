// Package identity supplies the current actor to the request lifecycle. The
// production provider reads the actor the auth middleware attached to the
// request context; tests substitute a static provider.
package identity

import (
	"context"
	"errors"

	"schoolhub/internal/model"
)

type contextKey string

const actorKey contextKey = "actor"

// ErrNoActor is returned when no authenticated actor is attached to the context.
var ErrNoActor = errors.New("no authenticated actor in context")

// Provider resolves the acting user for an operation.
type Provider interface {
	CurrentUser(ctx context.Context) (model.Actor, error)
}

// WithActor attaches the authenticated actor to the context. Called by the
// auth middleware after the token is verified.
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// FromContext extracts the actor placed by WithActor.
func FromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(model.Actor)
	return actor, ok
}

// ContextProvider reads the actor from the request context.
type ContextProvider struct{}

func (ContextProvider) CurrentUser(ctx context.Context) (model.Actor, error) {
	actor, ok := FromContext(ctx)
	if !ok {
		return model.Actor{}, ErrNoActor
	}
	return actor, nil
}

// StaticProvider always returns the same actor. Used in tests and one-off
// administrative tooling.
type StaticProvider struct {
	Actor model.Actor
}

func (p StaticProvider) CurrentUser(ctx context.Context) (model.Actor, error) {
	return p.Actor, nil
}
