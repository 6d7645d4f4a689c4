package utils

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(7, "inspector", "secret", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateToken(token, "secret")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "inspector" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(7, "inspector", "secret", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateToken(token, "other-secret"); err == nil {
		t.Fatal("expected validation failure with wrong secret")
	}
}

func TestTokenExpired(t *testing.T) {
	token, err := GenerateToken(7, "inspector", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateToken(token, "secret"); err == nil {
		t.Fatal("expected validation failure for expired token")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPasswordHash("s3cret!", hash) {
		t.Fatal("correct password rejected")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Fatal("wrong password accepted")
	}
}

func TestMaskDSN(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "--- EMPTY ---"},
		{"postgres://depot:hunter2@db:5432/axle", "postgres://depot:***MASKED***@db:5432/axle"},
		{"depot:hunter2@tcp(db:3306)/axle", "depot:***MASKED***@tcp(db:3306)/axle"},
		{"postgres://depot@db:5432/axle", "postgres://depot@db:5432/axle"},
	}
	for _, tc := range cases {
		if got := MaskDSN(tc.in); got != tc.want {
			t.Errorf("MaskDSN(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
