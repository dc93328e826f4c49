// file: service/auth_service_test.go

package service

import (
	"pay-ledger-api/config"
	"pay-ledger-api/model"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

// TestHashAndCheckPassword ensures that password hashing and verification work correctly.
func TestHashAndCheckPassword(t *testing.T) {
	password := "mySecretPassword123"

	// 1. Test Hashing
	hashedPassword, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() returned an unexpected error: %v", err)
	}

	if hashedPassword == password {
		t.Errorf("Hashed password should not be the same as the original password.")
	}

	// 2. Test Successful Verification
	if !CheckPasswordHash(password, hashedPassword) {
		t.Errorf("CheckPasswordHash() should have returned true for a matching password, but got false.")
	}

	// 3. Test Failed Verification
	if CheckPasswordHash("notMyPassword", hashedPassword) {
		t.Errorf("CheckPasswordHash() should have returned false for a non-matching password, but got true.")
	}
}

func TestGenerateJWT(t *testing.T) {
	config.AppConfig.JWT.SecretKey = "unit-test-secret"

	tokenString, err := GenerateJWT("user-42")
	if err != nil {
		t.Fatalf("GenerateJWT() returned an unexpected error: %v", err)
	}

	claims := &model.AppClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.AppConfig.JWT.SecretKey), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("Generated token should parse and validate, got error: %v", err)
	}

	if claims.UserID != "user-42" {
		t.Errorf("Expected user_id claim %q, got %q", "user-42", claims.UserID)
	}
}
