package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/mdx/internal/shared"
)

// HandlePrefix marks user-facing handles ("@alice").
const HandlePrefix = "@"

// User is a registered account. The password hash never leaves the identity layer.
type User struct {
	id           string
	username     string
	handle       string
	passwordHash string
	createdAt    time.Time
}

// NewUser creates a [User] stamped with the current time. The ID is assigned on insert.
func NewUser(username, handle, passwordHash string) *User {
	return &User{
		username:     username,
		handle:       handle,
		passwordHash: passwordHash,
		createdAt:    time.Now().UTC(),
	}
}

func (u *User) ID() string { return u.id }
func (u *User) GetID() string { return u.id }
func (u *User) Username() string { return u.username }
func (u *User) Handle() string { return u.handle }
func (u *User) PasswordHash() string { return u.passwordHash }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) Created() time.Time { return u.createdAt }
func (u *User) SetID(id string) { u.id = id }
func (u *User) SetCreatedAt(t time.Time) { u.createdAt = t }

// Validate checks required fields and the handle prefix.
func (u *User) Validate() error {
	if strings.TrimSpace(u.username) == "" {
		return fmt.Errorf("%w: username is required", shared.ErrInvalidArgument)
	}
	if !strings.HasPrefix(u.handle, HandlePrefix) || len(u.handle) == len(HandlePrefix) {
		return fmt.Errorf("%w: handle must start with %s", shared.ErrInvalidArgument, HandlePrefix)
	}
	if u.passwordHash == "" {
		return fmt.Errorf("%w: password hash is required", shared.ErrInvalidArgument)
	}
	return nil
}
