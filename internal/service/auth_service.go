package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lironoshka111/supportme/internal/auth"
	"github.com/lironoshka111/supportme/internal/models"
	"github.com/lironoshka111/supportme/internal/storage"
)

var (
	ErrEmailRequired = errors.New("email is required")
	ErrNameRequired  = errors.New("display name is required")
	ErrUserNotFound  = errors.New("user not found")
)

// AuthService owns registration, login, and profile management.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         storage.UserStore
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users storage.UserStore) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
	}
}

// Register creates a new user account and returns it with a session token.
func (s *AuthService) Register(ctx context.Context, email, displayName, password string) (*models.User, string, error) {
	slog.Info("Register request", "email", email)

	if email == "" {
		return nil, "", ErrEmailRequired
	}
	if displayName == "" {
		return nil, "", ErrNameRequired
	}

	user, err := s.authenticator.Register(ctx, email, displayName, password)
	if err != nil {
		slog.Warn("Registration failed", "email", email, "error", err)
		return nil, "", err
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		slog.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, "", err
	}

	slog.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	return user, token, nil
}

// Login authenticates a user and returns a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	slog.Info("Login request", "email", email)

	if email == "" || password == "" {
		return nil, "", auth.ErrInvalidCredentials
	}

	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		slog.Warn("Login failed", "email", email, "error", err)
		return nil, "", auth.ErrInvalidCredentials
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		slog.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, "", err
	}

	slog.Info("User logged in successfully", "user_id", user.ID, "email", user.Email)
	return user, token, nil
}

// GetCurrentUser returns the full account row for the authenticated user.
func (s *AuthService) GetCurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile changes the user's display name and/or photo. Empty fields
// keep their current value.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, displayName, photoURL string) (*models.User, error) {
	slog.Info("UpdateProfile request", "user_id", userID)

	user, err := s.GetCurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if displayName != "" {
		user.DisplayName = displayName
	}
	if photoURL != "" {
		user.PhotoURL = photoURL
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		slog.Error("UpdateProfile failed", "user_id", userID, "error", err)
		return nil, err
	}

	return user, nil
}
