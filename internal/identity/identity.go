// package identity registers accounts and verifies credentials.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mdx/internal/models"
	"github.com/desertthunder/mdx/internal/repositories"
	"github.com/desertthunder/mdx/internal/shared"
	"golang.org/x/crypto/bcrypt"
)

// RegisterInput carries a registration request.
//
// ConfirmPassword is optional; when set it must equal Password.
type RegisterInput struct {
	Username        string
	Handle          string
	Password        string
	ConfirmPassword string
}

// Identity is the authenticated caller a session carries.
type Identity struct {
	UserID string `json:"user_id"`
	Handle string `json:"handle"`
}

// Service implements registration and login against the users table.
type Service struct {
	users  *repositories.UserRepository
	cost   int
	logger *log.Logger
}

// NewService creates an identity [Service]. Costs outside bcrypt's range fall back to [bcrypt.DefaultCost].
func NewService(users *repositories.UserRepository, cost int, logger *log.Logger) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{users: users, cost: cost, logger: shared.WithLogger(logger, "component", "identity")}
}

// NormalizeHandle trims h and prepends "@" when missing.
func NormalizeHandle(h string) string {
	h = strings.TrimSpace(h)
	if h == "" || strings.HasPrefix(h, models.HandlePrefix) {
		return h
	}
	return models.HandlePrefix + h
}

// Register creates an account with a bcrypt password hash.
//
// Missing fields, a handle without "@" and a mismatched confirmation are [shared.ErrInvalidArgument].
// A taken username or handle is [shared.ErrConflict].
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	handle := strings.TrimSpace(in.Handle)

	switch {
	case username == "":
		return nil, fmt.Errorf("%w: username is required", shared.ErrInvalidArgument)
	case handle == "":
		return nil, fmt.Errorf("%w: handle is required", shared.ErrInvalidArgument)
	case !strings.HasPrefix(handle, models.HandlePrefix) || handle == models.HandlePrefix:
		return nil, fmt.Errorf("%w: handle must start with %s", shared.ErrInvalidArgument, models.HandlePrefix)
	case in.Password == "":
		return nil, fmt.Errorf("%w: password is required", shared.ErrInvalidArgument)
	case in.ConfirmPassword != "" && in.ConfirmPassword != in.Password:
		return nil, fmt.Errorf("%w: passwords do not match", shared.ErrInvalidArgument)
	}

	exists, err := s.users.Exists(ctx, username, handle)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("username or handle already exists: %w", shared.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, fmt.Errorf("%w: password is too long", shared.ErrInvalidArgument)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.NewUser(username, handle, string(hash))
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("registered user", "handle", handle, "id", user.ID())
	return user, nil
}

// Authenticate verifies a handle and password. The handle may omit its "@".
//
// Unknown handles and wrong passwords both yield [shared.ErrUnauthorized].
func (s *Service) Authenticate(ctx context.Context, handle, password string) (Identity, error) {
	handle = NormalizeHandle(handle)
	if handle == "" || password == "" {
		return Identity{}, fmt.Errorf("%w: handle and password are required", shared.ErrUnauthorized)
	}

	user, err := s.users.GetByHandle(ctx, handle)
	if errors.Is(err, shared.ErrNotFound) {
		return Identity{}, fmt.Errorf("invalid credentials: %w", shared.ErrUnauthorized)
	}
	if err != nil {
		return Identity{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash()), []byte(password)); err != nil {
		s.logger.Debug("password mismatch", "handle", handle)
		return Identity{}, fmt.Errorf("invalid credentials: %w", shared.ErrUnauthorized)
	}

	return Identity{UserID: user.ID(), Handle: user.Handle()}, nil
}

// Lookup resolves a handle (with or without "@") to its account identity.
func (s *Service) Lookup(ctx context.Context, handle string) (Identity, error) {
	user, err := s.users.GetByHandle(ctx, NormalizeHandle(handle))
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: user.ID(), Handle: user.Handle()}, nil
}
