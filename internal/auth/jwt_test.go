package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, issuer, subject string, expiry time.Duration) string {
	t.Helper()

	claims := Claims{
		Email: "trader@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestValidateAccessToken(t *testing.T) {
	m := NewJWTManager(testSecret, "journal-auth")

	token := signToken(t, testSecret, "journal-auth", "user-123", time.Hour)

	claims, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if claims.UserID != "user-123" {
		t.Errorf("expected user-123, got %s", claims.UserID)
	}
	if claims.Email != "trader@example.com" {
		t.Errorf("unexpected email %s", claims.Email)
	}
}

func TestValidateAccessToken_Expired(t *testing.T) {
	m := NewJWTManager(testSecret, "")

	token := signToken(t, testSecret, "", "user-123", -time.Minute)

	if _, err := m.ValidateAccessToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	m := NewJWTManager(testSecret, "")

	token := signToken(t, "other-secret", "", "user-123", time.Hour)

	if _, err := m.ValidateAccessToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateAccessToken_WrongIssuer(t *testing.T) {
	m := NewJWTManager(testSecret, "journal-auth")

	token := signToken(t, testSecret, "somewhere-else", "user-123", time.Hour)

	if _, err := m.ValidateAccessToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateAccessToken_MissingSubject(t *testing.T) {
	m := NewJWTManager(testSecret, "")

	token := signToken(t, testSecret, "", "", time.Hour)

	if _, err := m.ValidateAccessToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
