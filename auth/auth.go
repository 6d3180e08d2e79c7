// Package auth provides bearer token authentication for the SDMX Flight
// server.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"sync"
)

// ErrUnauthenticated is returned by authenticators for a rejected token.
var ErrUnauthenticated = errors.New("unauthenticated")

// Authenticator validates bearer tokens and returns user identity.
// Implementations MUST be goroutine-safe.
type Authenticator interface {
	// Authenticate validates a bearer token and returns the identity used
	// in logs. Context allows timeout for auth backend calls.
	Authenticate(ctx context.Context, token string) (identity string, err error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, token string) (string, error)

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, token string) (string, error) {
	return f(ctx, token)
}

// BearerAuth creates an Authenticator from a validation function.
//
// Example:
//
//	authn := auth.BearerAuth(func(token string) (string, error) {
//	    user, err := validateWithMyBackend(token)
//	    if err != nil {
//	        return "", auth.ErrUnauthenticated
//	    }
//	    return user.ID, nil
//	})
func BearerAuth(validate func(token string) (identity string, err error)) Authenticator {
	return AuthenticatorFunc(func(_ context.Context, token string) (string, error) {
		return validate(token)
	})
}

// StaticTokens accepts a fixed set of tokens, each mapped to an identity.
// Tokens are compared in constant time.
func StaticTokens(tokens map[string]string) Authenticator {
	type entry struct{ token, identity []byte }
	entries := make([]entry, 0, len(tokens))
	for token, identity := range tokens {
		if token == "" {
			continue
		}
		entries = append(entries, entry{[]byte(token), []byte(identity)})
	}

	return AuthenticatorFunc(func(_ context.Context, token string) (string, error) {
		given := []byte(token)
		identity := ""
		ok := 0
		for _, e := range entries {
			if subtle.ConstantTimeCompare(e.token, given) == 1 {
				identity = string(e.identity)
				ok = 1
			}
		}
		if ok == 0 {
			return "", ErrUnauthenticated
		}
		return identity, nil
	})
}

type contextKey int

const (
	identityKey contextKey = iota
	slotKey
)

// identitySlot receives an identity set further down a call chain.
type identitySlot struct {
	mu       sync.Mutex
	identity string
}

// TrackIdentity returns a context through which an identity later attached
// by WithIdentity on a derived context is also visible. Outer interceptors
// use it to log who made a call.
func TrackIdentity(ctx context.Context) context.Context {
	if _, ok := ctx.Value(slotKey).(*identitySlot); ok {
		return ctx
	}
	return context.WithValue(ctx, slotKey, &identitySlot{})
}

// WithIdentity returns a new context with the given user identity.
func WithIdentity(ctx context.Context, identity string) context.Context {
	if slot, ok := ctx.Value(slotKey).(*identitySlot); ok {
		slot.mu.Lock()
		slot.identity = identity
		slot.mu.Unlock()
	}
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext retrieves the authenticated user identity from context.
// Returns empty string if no identity is set (unauthenticated request).
func IdentityFromContext(ctx context.Context) string {
	if identity, ok := ctx.Value(identityKey).(string); ok {
		return identity
	}
	if slot, ok := ctx.Value(slotKey).(*identitySlot); ok {
		slot.mu.Lock()
		defer slot.mu.Unlock()
		return slot.identity
	}
	return ""
}
