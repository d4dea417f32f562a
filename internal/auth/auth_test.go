package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lironoshka111/supportme/internal/models"
)

// memoryUserStore is an in-memory UserStore for authenticator tests.
type memoryUserStore struct {
	byEmail map[string]*models.User
	byID    map[string]*models.User
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{
		byEmail: make(map[string]*models.User),
		byID:    make(map[string]*models.User),
	}
}

func (m *memoryUserStore) CreateUser(_ context.Context, user *models.User) error {
	if _, exists := m.byEmail[user.Email]; exists {
		return errors.New("duplicate email")
	}
	m.byEmail[user.Email] = user
	m.byID[user.ID] = user
	return nil
}

func (m *memoryUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return m.byEmail[email], nil
}

func (m *memoryUserStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	return m.byID[id], nil
}

func (m *memoryUserStore) UpdateUser(_ context.Context, user *models.User) error {
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user
	return nil
}

func TestRegisterAndAuthenticate(t *testing.T) {
	authenticator := NewPasswordAuthenticator(newMemoryUserStore())
	ctx := context.Background()

	user, err := authenticator.Register(ctx, "alice@example.com", "Alice", "correct-horse")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ID == "" {
		t.Error("Expected user ID to be generated")
	}
	if user.PasswordHash == "correct-horse" {
		t.Error("Password must not be stored in plaintext")
	}

	t.Run("correct password", func(t *testing.T) {
		got, err := authenticator.Authenticate(ctx, "alice@example.com", "correct-horse")
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if got.ID != user.ID {
			t.Errorf("Got wrong user: %s", got.ID)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := authenticator.Authenticate(ctx, "alice@example.com", "wrong")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := authenticator.Authenticate(ctx, "nobody@example.com", "correct-horse")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := authenticator.Register(ctx, "alice@example.com", "Alice Again", "another-pass")
		if !errors.Is(err, ErrEmailExists) {
			t.Errorf("Expected ErrEmailExists, got %v", err)
		}
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := authenticator.Register(ctx, "bob@example.com", "Bob", "short")
		if !errors.Is(err, ErrWeakPassword) {
			t.Errorf("Expected ErrWeakPassword, got %v", err)
		}
	})
}

func TestJWTRoundTrip(t *testing.T) {
	manager := NewJWTManager("test-secret-key-32-bytes-long!!!", time.Hour)

	user := &models.User{
		ID:          "user-123",
		Email:       "alice@example.com",
		DisplayName: "Alice",
		PhotoURL:    "https://example.com/alice.png",
	}

	token, err := manager.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("UserID mismatch: got %s, want %s", claims.UserID, user.ID)
	}
	if claims.Email != user.Email {
		t.Errorf("Email mismatch: got %s, want %s", claims.Email, user.Email)
	}
	if claims.DisplayName != user.DisplayName {
		t.Errorf("DisplayName mismatch: got %s", claims.DisplayName)
	}
	if claims.PhotoURL != user.PhotoURL {
		t.Errorf("PhotoURL mismatch: got %s", claims.PhotoURL)
	}
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	manager := NewJWTManager("test-secret-key-32-bytes-long!!!", -time.Minute)

	token, err := manager.Generate(&models.User{ID: "user-123", Email: "a@b.c"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	_, err = manager.Validate(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	signer := NewJWTManager("the-right-secret-key-for-signing", time.Hour)
	verifier := NewJWTManager("a-completely-different-secret!!!", time.Hour)

	token, err := signer.Generate(&models.User{ID: "user-123", Email: "a@b.c"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	_, err = verifier.Validate(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestJWTRejectsGarbage(t *testing.T) {
	manager := NewJWTManager("test-secret-key-32-bytes-long!!!", time.Hour)

	if _, err := manager.Validate("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}
