// Package auth registers users and authenticates them with bcrypt password
// hashes and short-lived signed access tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"taskapi/internal/apperror"
	"taskapi/internal/models"
	"taskapi/internal/storage"
)

const (
	msgCredentialsRequired = "Username and password are required"
	msgInvalidCredentials  = "Invalid username or password"
	msgUsernameTaken       = "Username already exists"
	msgPasswordTooLong     = "Password must be at most 72 bytes"
)

// UserStore is the credential store the service reads and writes through.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (models.User, error)
	FindUserByUsername(ctx context.Context, username string) (models.User, error)
}

// Service implements registration and login.
type Service struct {
	users  UserStore
	hasher *PasswordHasher
	tokens *TokenIssuer
	logger *slog.Logger
}

func NewService(users UserStore, hasher *PasswordHasher, tokens *TokenIssuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, hasher: hasher, tokens: tokens, logger: logger}
}

// Register hashes password and stores the account, returning the username.
func (s *Service) Register(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", apperror.Validation(msgCredentialsRequired)
	}

	hash, err := s.hasher.Hash(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperror.Validation(msgPasswordTooLong)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, username, hash)
	if errors.Is(err, storage.ErrDuplicate) {
		return "", apperror.Validation(msgUsernameTaken)
	}
	if err != nil {
		return "", err
	}

	s.logger.Info("user registered", slog.String("user_id", u.ID))
	return u.Username, nil
}

// Login verifies the credentials and issues an access token. Unknown users
// and wrong passwords fail with the same error.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", apperror.Validation(msgCredentialsRequired)
	}

	u, err := s.users.FindUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return "", apperror.Auth(msgInvalidCredentials)
	}
	if err != nil {
		return "", err
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		return "", apperror.Auth(msgInvalidCredentials)
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return token, nil
}

// Authenticate validates an access token and returns its claims.
func (s *Service) Authenticate(token string) (*Claims, error) {
	return s.tokens.Parse(token)
}
