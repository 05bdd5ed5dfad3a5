// Package session carries the acting user's identity and the ownership rule
// that decides who may delete an event.
package session

import (
	"context"

	"github.com/iieadb/eventboard/internal/domain/model"
)

// Identity is the authenticated actor. A nil *Identity means nobody is
// signed in or the session has not loaded yet.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// User converts the identity into the creator reference stored on events.
func (i Identity) User() model.User {
	return model.User{ID: i.ID, Username: i.Username}
}

// CanDelete reports whether who owns e. It is false whenever either side of
// the comparison is absent.
func CanDelete(who *Identity, e model.Event) bool {
	if who == nil {
		return false
	}
	id, ok := e.CreatorID()
	return ok && id == who.ID
}

// Provider exposes the current identity.
type Provider interface {
	Current(ctx context.Context) *Identity
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) *Identity

// Current calls fn(ctx).
func (fn ProviderFunc) Current(ctx context.Context) *Identity { return fn(ctx) }

// Static always returns the same identity, or none when nil.
type Static struct {
	Identity *Identity
}

// Current returns a copy of the configured identity.
func (s Static) Current(context.Context) *Identity {
	if s.Identity == nil {
		return nil
	}
	id := *s.Identity
	return &id
}

// ContextProvider reads the identity stored by WithIdentity.
type ContextProvider struct{}

// Current returns the identity attached to ctx.
func (ContextProvider) Current(ctx context.Context) *Identity {
	return FromContext(ctx)
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity attached to ctx, or nil.
func FromContext(ctx context.Context) *Identity {
	if ctx == nil {
		return nil
	}
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok {
		return nil
	}
	return &id
}
