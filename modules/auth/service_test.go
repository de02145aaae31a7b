package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/robertkruk/parent-connect-app/domain/user"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&domain.User{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func newTestService(t *testing.T) *AuthService {
	t.Helper()

	repo := NewUserRepository(setupTestDB(t))
	jwt := NewJWTManager(JWTConfig{
		SecretKey:            "test-secret-key",
		AccessTokenDuration:  time.Hour,
		RefreshTokenDuration: 24 * time.Hour,
		Issuer:               "parent-connect-test",
	})
	return NewAuthService(repo, NewPasswordHasher(), jwt)
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		userName string
		email    string
		password string
		wantErr  error
	}{
		{
			name:     "valid registration",
			userName: "Sarah Johnson",
			email:    "sarah@example.com",
			password: "password123",
		},
		{
			name:     "missing name",
			userName: "",
			email:    "sarah@example.com",
			password: "password123",
			wantErr:  ErrNameRequired,
		},
		{
			name:     "invalid email",
			userName: "Sarah Johnson",
			email:    "not-an-email",
			password: "password123",
			wantErr:  ErrInvalidEmail,
		},
		{
			name:     "short password",
			userName: "Sarah Johnson",
			email:    "sarah@example.com",
			password: "short",
			wantErr:  ErrWeakPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTestService(t)

			user, err := service.Register(ctx, tt.userName, tt.email, tt.password, "+1-555-0100")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Register() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Register() error = %v", err)
			}
			if user.ID == "" {
				t.Error("expected user to have an ID")
			}
			if user.PasswordHash == tt.password {
				t.Error("password must not be stored in plaintext")
			}
		})
	}
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	if _, err := service.Register(ctx, "Sarah Johnson", "sarah@example.com", "password123", ""); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	_, err := service.Register(ctx, "Other Sarah", "sarah@example.com", "password456", "")
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("Register() error = %v, want %v", err, ErrUserExists)
	}
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	registered, err := service.Register(ctx, "Sarah Johnson", "sarah@example.com", "password123", "")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	t.Run("correct credentials", func(t *testing.T) {
		user, tokens, err := service.Login(ctx, "sarah@example.com", "password123")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if user.ID != registered.ID {
			t.Errorf("Login() user ID = %s, want %s", user.ID, registered.ID)
		}
		if tokens.AccessToken == "" || tokens.RefreshToken == "" {
			t.Error("expected both access and refresh tokens")
		}
		if tokens.TokenType != "Bearer" {
			t.Errorf("token type = %s, want Bearer", tokens.TokenType)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := service.Login(ctx, "sarah@example.com", "wrong-password")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Login() error = %v, want %v", err, ErrInvalidCredentials)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := service.Login(ctx, "nobody@example.com", "password123")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Login() error = %v, want %v", err, ErrInvalidCredentials)
		}
	})
}

func TestAuthService_RefreshTokens(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	if _, err := service.Register(ctx, "Sarah Johnson", "sarah@example.com", "password123", ""); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	_, tokens, err := service.Login(ctx, "sarah@example.com", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	t.Run("valid refresh token", func(t *testing.T) {
		refreshed, err := service.RefreshTokens(ctx, tokens.RefreshToken)
		if err != nil {
			t.Fatalf("RefreshTokens() error = %v", err)
		}
		if refreshed.AccessToken == "" || refreshed.RefreshToken == "" {
			t.Error("expected a full token pair")
		}
	})

	t.Run("access token rejected", func(t *testing.T) {
		if _, err := service.RefreshTokens(ctx, tokens.AccessToken); err == nil {
			t.Fatal("expected error when refreshing with an access token")
		}
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		if _, err := service.RefreshTokens(ctx, "not.a.token"); err == nil {
			t.Fatal("expected error for garbage token")
		}
	})
}

func TestAuthService_ValidateToken(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	user, err := service.Register(ctx, "Sarah Johnson", "sarah@example.com", "password123", "")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	_, tokens, err := service.Login(ctx, "sarah@example.com", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	t.Run("valid token", func(t *testing.T) {
		claims, err := service.ValidateToken(ctx, tokens.AccessToken)
		if err != nil {
			t.Fatalf("ValidateToken() error = %v", err)
		}
		if claims.UserID != user.ID {
			t.Errorf("claims user ID = %s, want %s", claims.UserID, user.ID)
		}
		if claims.Email != "sarah@example.com" {
			t.Errorf("claims email = %s, want sarah@example.com", claims.Email)
		}
	})

	t.Run("deleted user rejected", func(t *testing.T) {
		if err := service.repo.db.Delete(&domain.User{}, "id = ?", user.ID).Error; err != nil {
			t.Fatalf("failed to delete user: %v", err)
		}
		if _, err := service.ValidateToken(ctx, tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("ValidateToken() error = %v, want %v", err, ErrInvalidToken)
		}
	})
}

func TestAuthService_GetUser(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	user, err := service.Register(ctx, "Sarah Johnson", "sarah@example.com", "password123", "")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	found, err := service.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if found.Name != "Sarah Johnson" {
		t.Errorf("GetUser() name = %s, want Sarah Johnson", found.Name)
	}

	if _, err := service.GetUser(ctx, "missing-id"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("GetUser() error = %v, want %v", err, ErrUserNotFound)
	}
}
