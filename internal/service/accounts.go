package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Clark-Hu/cinerate/internal/auth"
	"github.com/Clark-Hu/cinerate/internal/domain"
	"github.com/Clark-Hu/cinerate/internal/repository"
)

// UserStore is the account persistence used by AccountService.
type UserStore interface {
	Create(ctx context.Context, params repository.UserCreateParams) (domain.User, error)
	GetByID(ctx context.Context, id int64) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, id int64, params repository.UserUpdateParams) (domain.User, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenSigner issues access tokens.
type TokenSigner interface {
	Issue(user domain.User) (string, time.Time, error)
}

// Session is a freshly authenticated user and its token.
type Session struct {
	User      domain.User
	Token     string
	ExpiresAt time.Time
}

// RegisterInput is a new account request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// UserUpdateInput is a partial profile update.
type UserUpdateInput struct {
	Username *string
	Email    *string
}

const invalidCredentials = "invalid email or password"

// AccountService handles registration, login and profile management.
type AccountService struct {
	users  UserStore
	hasher PasswordHasher
	tokens TokenSigner

	// dummyHash is compared on unknown emails so both login failures cost one bcrypt run.
	dummyHash string
}

// NewAccountService wires the service to its collaborators.
func NewAccountService(users UserStore, hasher PasswordHasher, tokens TokenSigner) *AccountService {
	dummy, err := hasher.Hash("cinerate-unknown-account")
	if err != nil {
		dummy = ""
	}
	return &AccountService{users: users, hasher: hasher, tokens: tokens, dummyHash: dummy}
}

// Register creates an account and returns a session for it.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return Session{}, domain.Validationf("username, email and password are required")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, domain.Internal(err, "failed to register user")
	}
	user, err := s.users.Create(ctx, repository.UserCreateParams{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return Session{}, domain.Conflictf("username or email already in use")
		}
		return Session{}, domain.Internal(err, "failed to register user")
	}
	return s.session(user)
}

// Login verifies credentials. Unknown email and wrong password produce the
// same UNAUTHORIZED error.
func (s *AccountService) Login(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, domain.Validationf("email and password are required")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if s.dummyHash != "" {
				_ = s.hasher.Compare(s.dummyHash, password)
			}
			return Session{}, domain.Unauthorizedf(invalidCredentials)
		}
		return Session{}, domain.Internal(err, "failed to log in")
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return Session{}, domain.Unauthorizedf(invalidCredentials)
		}
		return Session{}, domain.Internal(err, "failed to log in")
	}
	return s.session(user)
}

// ListUsers returns every account.
func (s *AccountService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, domain.Internal(err, "failed to list users")
	}
	return users, nil
}

// GetUser returns one account.
func (s *AccountService) GetUser(ctx context.Context, id int64) (domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return domain.User{}, translate(err, "user not found")
	}
	return user, nil
}

// UpdateUser lets actorID change its own profile.
func (s *AccountService) UpdateUser(ctx context.Context, actorID, id int64, in UserUpdateInput) (domain.User, error) {
	if actorID != id {
		return domain.User{}, domain.Forbiddenf("you can only update your own account")
	}
	params := repository.UserUpdateParams{}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username == "" {
			return domain.User{}, domain.Validationf("username must not be empty")
		}
		params.Username = &username
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email == "" {
			return domain.User{}, domain.Validationf("email must not be empty")
		}
		params.Email = &email
	}
	user, err := s.users.Update(ctx, id, params)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.User{}, domain.Conflictf("username or email already in use")
		}
		return domain.User{}, translate(err, "user not found")
	}
	return user, nil
}

// DeleteUser lets actorID remove its own account along with its evaluations.
func (s *AccountService) DeleteUser(ctx context.Context, actorID, id int64) error {
	if actorID != id {
		return domain.Forbiddenf("you can only delete your own account")
	}
	deleted, err := s.users.Delete(ctx, id)
	if err != nil {
		return domain.Internal(err, "failed to delete user")
	}
	if !deleted {
		return domain.NotFoundf("user not found")
	}
	return nil
}

func (s *AccountService) session(user domain.User) (Session, error) {
	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, domain.Internal(err, "failed to issue token")
	}
	return Session{User: user, Token: token, ExpiresAt: expires}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
