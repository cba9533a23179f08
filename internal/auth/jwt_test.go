package auth_test

import (
	"testing"

	"github.com/nexpos/engine/internal/auth"
	"github.com/nexpos/engine/internal/enum"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"

	token, err := auth.GenerateToken(secret, "st-1", "Priya", enum.RoleCashier)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.StaffID != "st-1" {
		t.Errorf("staff ID: got %v, want st-1", claims.StaffID)
	}
	if claims.StaffName != "Priya" {
		t.Errorf("staff name: got %v, want Priya", claims.StaffName)
	}
	if claims.Role != enum.RoleCashier {
		t.Errorf("role: got %v, want %v", claims.Role, enum.RoleCashier)
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("secret-a", "st-1", "Priya", enum.RoleCashier)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = auth.ValidateToken("secret-b", token)
	if err == nil {
		t.Fatal("expected error validating with wrong secret")
	}
}

func TestValidateTokenWithInvalidString(t *testing.T) {
	_, err := auth.ValidateToken("secret", "not-a-jwt")
	if err == nil {
		t.Fatal("expected error validating invalid token string")
	}
}
