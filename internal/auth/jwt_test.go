package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidate(t *testing.T) {
	j := NewJWT("secret", time.Minute)
	tok, err := j.Generate(42)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := j.Validate(tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "42" {
		t.Fatalf("subject=%s", claims.Subject)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	tok, err := NewJWT("secret-a", time.Minute).Generate(1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewJWT("secret-b", time.Minute).Validate(tok); err == nil {
		t.Fatal("expected validation error for wrong secret")
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	tok, err := NewJWT("secret", -time.Minute).Generate(1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewJWT("secret", -time.Minute).Validate(tok); err == nil {
		t.Fatal("expected validation error for expired token")
	}
}
