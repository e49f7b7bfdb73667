package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestHashAndCheckPassword(t *testing.T) {
	pwd := "s3cr3t-password"
	hash, err := HashPassword(pwd)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$10$") {
		t.Fatalf("expected bcrypt cost 10 hash, got %s", hash[:7])
	}

	if err := CheckPassword(hash, pwd); err != nil {
		t.Fatalf("CheckPassword failed when password should match: %v", err)
	}

	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("CheckPassword succeeded when it should have failed")
	}
}

func TestJWTManager_GenerateAndVerify(t *testing.T) {
	m := NewJWTManager("test-secret", 24*time.Hour)

	before := time.Now()
	token, expiresAt, err := m.GenerateToken("507f1f77bcf86cd799439011", "dogowner1")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if d := expiresAt.Sub(before); d < 24*time.Hour-time.Second || d > 24*time.Hour+time.Second {
		t.Fatalf("expected 24h lifetime, got %s", d)
	}

	claims, err := m.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if claims.UserID != "507f1f77bcf86cd799439011" || claims.Username != "dogowner1" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestJWTManager_Expired(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	token, _, err := m.GenerateToken("u1", "alice")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.VerifyToken(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestJWTManager_Tampered(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	other := NewJWTManager("other-secret", time.Hour)

	token, _, _ := other.GenerateToken("u1", "alice")
	if _, err := m.VerifyToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for foreign signature, got %v", err)
	}

	if _, err := m.VerifyToken("not.a.jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}
}

func TestJWTManager_RejectsNoneAlgorithm(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	claims := &Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing with none failed: %v", err)
	}
	if _, err := m.VerifyToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for alg=none, got %v", err)
	}
}

func TestJWTManager_Rotation(t *testing.T) {
	// create a manager with two keys and active kid "k2"
	keys := map[string]string{"k1": "secret-one", "k2": "secret-two"}
	m := NewJWTManagerFromKeys(keys, "k2", 5*time.Minute)

	// token created with active kid (k2)
	tkn2, _, err := m.GenerateToken("u1", "rot")
	if err != nil {
		t.Fatalf("GenerateToken (k2) failed: %v", err)
	}
	if _, err := m.VerifyToken(tkn2); err != nil {
		t.Fatalf("VerifyToken (k2) failed: %v", err)
	}

	// a token signed by the older key (k1) emulates one issued before rotation
	mOld := NewJWTManagerFromKeys(keys, "k1", 5*time.Minute)
	tkn1, _, err := mOld.GenerateToken("u1", "rot")
	if err != nil {
		t.Fatalf("GenerateToken (k1) failed: %v", err)
	}
	if _, err := m.VerifyToken(tkn1); err != nil {
		t.Fatalf("VerifyToken (old k1) failed: %v", err)
	}

	// once k1 is retired its tokens stop verifying
	retired := NewJWTManagerFromKeys(map[string]string{"k2": "secret-two"}, "k2", 5*time.Minute)
	if _, err := retired.VerifyToken(tkn1); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected retired key to be rejected, got %v", err)
	}
}

func TestNewJWTManagerFromKeys_DefaultsActiveKid(t *testing.T) {
	m := NewJWTManagerFromKeys(map[string]string{"2024-01": "a", "2025-06": "b"}, "", time.Minute)
	if m.activeKid != "2025-06" {
		t.Fatalf("expected newest kid to be active, got %q", m.activeKid)
	}
}

func TestParseKeys(t *testing.T) {
	keys, err := ParseKeys("k1:secret-one, k2:secret:two")
	if err != nil {
		t.Fatalf("ParseKeys failed: %v", err)
	}
	if keys["k1"] != "secret-one" || keys["k2"] != "secret:two" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	for _, bad := range []string{"", "k1", ":secret", "k1:"} {
		if _, err := ParseKeys(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
