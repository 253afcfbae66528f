package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/pantry/internal/apperr"
	"github.com/dukerupert/pantry/internal/model"
	"github.com/dukerupert/pantry/internal/store"
)

const minPasswordLength = 8

// Service is what the rest of the application needs from authentication:
// turning credentials into a user id, and an email into a user id.
type Service interface {
	Verify(ctx context.Context, credentials string) (int64, error)
	ResolveEmail(ctx context.Context, email string) (int64, error)
}

// Provider implements Service with bcrypt passwords stored in the users table
// and JWT bearer credentials.
type Provider struct {
	users *store.UserStore
	jwt   *JWTManager
}

func NewProvider(users *store.UserStore, jwt *JWTManager) *Provider {
	return &Provider{users: users, jwt: jwt}
}

// Register creates an account. The email must not already be registered.
func (p *Provider) Register(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.New(apperr.CodeInvalidArgument, "email is required")
	}
	if len(password) < minPasswordLength {
		return nil, apperr.New(apperr.CodeInvalidArgument, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := p.users.Create(ctx, email, string(hash))
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.New(apperr.CodeEmailTaken, "email already registered")
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Login checks the password and returns a signed token for the user.
func (p *Provider) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	u, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return "", nil, apperr.New(apperr.CodeUnauthenticated, "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperr.New(apperr.CodeUnauthenticated, "invalid email or password")
	}

	token, err := p.jwt.Generate(u.ID, u.Email)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Verify resolves a bearer token to the id of an existing user.
func (p *Provider) Verify(ctx context.Context, credentials string) (int64, error) {
	if credentials == "" {
		return 0, apperr.ErrUnauthenticated
	}
	id, err := p.jwt.Validate(credentials)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeUnauthenticated, "invalid credentials", err)
	}
	u, err := p.users.GetByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return 0, apperr.New(apperr.CodeUnauthenticated, "account no longer exists")
	}
	return u.ID, nil
}

// ResolveEmail looks up a registered user by email.
func (p *Provider) ResolveEmail(ctx context.Context, email string) (int64, error) {
	u, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return 0, apperr.New(apperr.CodeUnknownUser, "no user with email "+strings.TrimSpace(email))
	}
	return u.ID, nil
}

// User returns the account behind id, or nil.
func (p *Provider) User(ctx context.Context, id int64) (*model.User, error) {
	return p.users.GetByID(ctx, id)
}
