package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrTokenExpired is returned for a well-signed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for malformed, tampered or unknown-key tokens.
	ErrTokenInvalid = errors.New("invalid token")
)

// JWTManager signs and validates JWT tokens used by the API.
// It holds one or more HMAC keys addressed by key id so secrets can be
// rotated without invalidating tokens issued under the previous key.
type JWTManager struct {
	keys      map[string][]byte // kid -> secret
	activeKid string            // kid used when signing new tokens
	duration  time.Duration     // How long tokens are valid (24 hours by default)
	now       func() time.Time
}

// Claims is the custom JWT payload: {id, username, exp}.
type Claims struct {
	UserID               string `json:"id"`       // store id of the user
	Username             string `json:"username"` // username at issuance time
	jwt.RegisteredClaims        // Includes ExpiresAt, IssuedAt
}

// NewJWTManager returns a JWTManager that signs with a single secret.
// Tokens it issues carry no kid header.
func NewJWTManager(secretKey string, duration time.Duration) *JWTManager {
	return &JWTManager{
		keys:     map[string][]byte{"": []byte(secretKey)},
		duration: duration,
		now:      time.Now,
	}
}

// NewJWTManagerFromKeys returns a JWTManager that signs with keys[activeKid]
// and verifies with whichever key the token's kid header names. If activeKid
// is not among keys the lexically greatest kid is used.
func NewJWTManagerFromKeys(keys map[string]string, activeKid string, duration time.Duration) *JWTManager {
	m := &JWTManager{
		keys:     make(map[string][]byte, len(keys)),
		duration: duration,
		now:      time.Now,
	}
	kids := make([]string, 0, len(keys))
	for kid, secret := range keys {
		m.keys[kid] = []byte(secret)
		kids = append(kids, kid)
	}
	sort.Strings(kids)

	m.activeKid = activeKid
	if _, ok := m.keys[activeKid]; !ok && len(kids) > 0 {
		m.activeKid = kids[len(kids)-1]
	}
	return m
}

// ParseKeys parses a "kid:secret,kid2:secret2" list.
func ParseKeys(spec string) (map[string]string, error) {
	keys := map[string]string{}
	for _, p := range strings.Split(spec, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid JWT key entry %q", p)
		}
		keys[parts[0]] = parts[1]
	}
	if len(keys) == 0 {
		return nil, errors.New("no JWT keys supplied")
	}
	return keys, nil
}

// GenerateToken issues a signed JWT token for a user.
func (m *JWTManager) GenerateToken(userID, username string) (string, time.Time, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.duration)

	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	// HS256 = HMAC with SHA-256
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if m.activeKid != "" {
		token.Header["kid"] = m.activeKid
	}

	tokenString, err := token.SignedString(m.keys[m.activeKid])
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// VerifyToken parses and validates a token and returns its claims.
// The error is ErrTokenExpired or ErrTokenInvalid, wrapping the parser error.
func (m *JWTManager) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (m *JWTManager) keyFunc(token *jwt.Token) (interface{}, error) {
	// Security check: ensure token was signed with HMAC (not asymmetric key)
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	kid, _ := token.Header["kid"].(string)
	key, ok := m.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return key, nil
}

// HashPassword returns a bcrypt hash for the provided plaintext.
func HashPassword(password string) (string, error) {
	// bcrypt.DefaultCost is 10 rounds
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
