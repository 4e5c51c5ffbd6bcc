package identity

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/desertthunder/mdx/internal/repositories"
	"github.com/desertthunder/mdx/internal/shared"
	tu "github.com/desertthunder/mdx/internal/testing"
	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T) *Service {
	t.Helper()
	users := repositories.NewUserRepository(tu.SetupDB(t))
	return NewService(users, bcrypt.MinCost, shared.NewLogger(io.Discard))
}

func TestNormalizeHandle(t *testing.T) {
	tests := map[string]string{
		"alice":   "@alice",
		"@alice":  "@alice",
		"  bob  ": "@bob",
		"":        "",
		"   ":     "",
		"@@weird": "@@weird",
	}

	for in, want := range tests {
		if got := NormalizeHandle(in); got != want {
			t.Errorf("NormalizeHandle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc := newService(t)

		user, err := svc.Register(ctx, RegisterInput{Username: "alice", Handle: "@alice", Password: "secret", ConfirmPassword: "secret"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.ID() == "" {
			t.Error("expected user ID to be set")
		}
		if user.PasswordHash() == "secret" || !strings.HasPrefix(user.PasswordHash(), "$2") {
			t.Errorf("expected a bcrypt hash, got %q", user.PasswordHash())
		}
	})

	t.Run("Validation", func(t *testing.T) {
		tests := []struct {
			name  string
			input RegisterInput
		}{
			{"MissingUsername", RegisterInput{Handle: "@a", Password: "p"}},
			{"MissingHandle", RegisterInput{Username: "a", Password: "p"}},
			{"HandleWithoutPrefix", RegisterInput{Username: "a", Handle: "alice", Password: "p"}},
			{"BarePrefix", RegisterInput{Username: "a", Handle: "@", Password: "p"}},
			{"MissingPassword", RegisterInput{Username: "a", Handle: "@a"}},
			{"MismatchedConfirm", RegisterInput{Username: "a", Handle: "@a", Password: "p", ConfirmPassword: "q"}},
			{"PasswordTooLong", RegisterInput{Username: "a", Handle: "@a", Password: strings.Repeat("x", 80)}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc := newService(t)
				if _, err := svc.Register(ctx, tt.input); !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
			})
		}
	})

	t.Run("DuplicateHandle", func(t *testing.T) {
		svc := newService(t)

		if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Handle: "@alice", Password: "p"}); err != nil {
			t.Fatalf("first registration failed: %v", err)
		}

		_, err := svc.Register(ctx, RegisterInput{Username: "alice2", Handle: "@alice", Password: "p"})
		if !errors.Is(err, shared.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		svc := newService(t)

		if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Handle: "@alice", Password: "p"}); err != nil {
			t.Fatalf("first registration failed: %v", err)
		}

		_, err := svc.Register(ctx, RegisterInput{Username: "alice", Handle: "@other", Password: "p"})
		if !errors.Is(err, shared.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) *Service {
		svc := newService(t)
		if _, err := svc.Register(ctx, RegisterInput{Username: "foo", Handle: "@foo", Password: "hunter2"}); err != nil {
			t.Fatalf("registration failed: %v", err)
		}
		return svc
	}

	t.Run("HandleNormalization", func(t *testing.T) {
		svc := setup(t)

		withPrefix, err := svc.Authenticate(ctx, "@foo", "hunter2")
		if err != nil {
			t.Fatalf("login with @foo failed: %v", err)
		}
		withoutPrefix, err := svc.Authenticate(ctx, "foo", "hunter2")
		if err != nil {
			t.Fatalf("login with foo failed: %v", err)
		}

		if withPrefix != withoutPrefix {
			t.Errorf("expected identical identities, got %+v and %+v", withPrefix, withoutPrefix)
		}
		if withPrefix.Handle != "@foo" || withPrefix.UserID == "" {
			t.Errorf("unexpected identity: %+v", withPrefix)
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		svc := setup(t)

		if _, err := svc.Authenticate(ctx, "@foo", "wrong"); !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("UnknownHandle", func(t *testing.T) {
		svc := setup(t)

		if _, err := svc.Authenticate(ctx, "@nobody", "hunter2"); !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("EmptyCredentials", func(t *testing.T) {
		svc := setup(t)

		if _, err := svc.Authenticate(ctx, "", ""); !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("Lookup", func(t *testing.T) {
		svc := setup(t)

		id, err := svc.Lookup(ctx, "foo")
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if id.Handle != "@foo" {
			t.Errorf("expected @foo, got %s", id.Handle)
		}
		if _, err := svc.Lookup(ctx, "nobody"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
