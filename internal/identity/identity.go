// Package identity adapts the external identity provider: JWT bearer tokens
// carry the stable user id, and a directory lookup supplies profile fields.
// This core references users, never mutates them.
package identity

import (
	"context"
	"errors"
)

// User is the referenced identity shape.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
}

// ErrUnauthenticated propagates identity failures.
var ErrUnauthenticated = errors.New("identity: unauthenticated")

// ErrUserNotFound reports a directory miss (user vanished).
var ErrUserNotFound = errors.New("identity: user not found")

// Directory resolves user ids to profiles.
type Directory interface {
	FindByID(ctx context.Context, id string) (*User, error)
}
