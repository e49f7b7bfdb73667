// Package identity registers and authenticates users and issues their
// access tokens.
package identity

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/PaulBabatuyi/dog-adoption-api/internal/apperr"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/auth"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/data"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/normalize"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/validation"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// MaxPasswordBytes is bcrypt's input limit.
const MaxPasswordBytes = 72

// UserStore is the persistence the service needs.
type UserStore interface {
	CreateUser(ctx context.Context, username, hashedPassword string) (*data.User, error)
	GetUserByUsername(ctx context.Context, username string) (*data.User, error)
	UserExists(ctx context.Context, username string) (bool, error)
}

// TokenIssuer issues signed access tokens.
type TokenIssuer interface {
	GenerateToken(userID, username string) (string, time.Time, error)
}

// PublicUser is the part of a user that may leave the service.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Result is returned by Register and Authenticate.
type Result struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      PublicUser `json:"user"`
}

// Credentials is the register/login input.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registration struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// Service implements registration and login.
type Service struct {
	users  UserStore
	tokens TokenIssuer
	log    *zap.Logger
	// hash and check are swappable so tests avoid bcrypt's cost
	hash  func(string) (string, error)
	check func(hash, password string) error
}

// NewService wires the service.
func NewService(users UserStore, tokens TokenIssuer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		users:  users,
		tokens: tokens,
		log:    log,
		hash:   auth.HashPassword,
		check:  auth.CheckPassword,
	}
}

var errInvalidCredentials = apperr.Unauthenticated(apperr.CodeInvalidCredentials, "Invalid credentials")

var errPasswordTooLong = apperr.Validation(apperr.CodeValidation, "Password cannot exceed 72 bytes").
	WithFields(map[string]string{"password": "password cannot exceed 72 bytes"})

// Register creates a user and returns a token for it.
func (s *Service) Register(ctx context.Context, in Credentials) (*Result, error) {
	in.Username = normalize.Username(in.Username)
	if in.Username == "" || in.Password == "" {
		return nil, validation.Struct(in, "Username and password are required")
	}
	if err := validation.Struct(registration(in), "Password must be at least 6 characters"); err != nil {
		return nil, err
	}
	if len(in.Password) > MaxPasswordBytes {
		return nil, errPasswordTooLong
	}

	exists, err := s.users.UserExists(ctx, in.Username)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if exists {
		return nil, apperr.Conflict(apperr.CodeUsernameTaken, "Username already exists")
	}

	hashed, err := s.hash(in.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, errPasswordTooLong
		}
		return nil, apperr.Internal(err)
	}

	user, err := s.users.CreateUser(ctx, in.Username, hashed)
	if err != nil {
		// lost a registration race against the unique index
		if errors.Is(err, data.ErrDuplicate) {
			return nil, apperr.Conflict(apperr.CodeUsernameTaken, "Username already exists")
		}
		return nil, apperr.Internal(err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return s.issue(user)
}

// Authenticate verifies credentials and returns a fresh token. Unknown users
// and wrong passwords fail identically.
func (s *Service) Authenticate(ctx context.Context, in Credentials) (*Result, error) {
	in.Username = normalize.Username(in.Username)
	if err := validation.Struct(in, "Username and password are required"); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, apperr.Internal(err)
	}
	if err := s.check(user.Password, in.Password); err != nil {
		s.log.Debug("password mismatch", zap.String("user_id", user.ID))
		return nil, errInvalidCredentials
	}

	return s.issue(user)
}

func (s *Service) issue(user *data.User) (*Result, error) {
	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Result{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      PublicUser{ID: user.ID, Username: user.Username},
	}, nil
}
