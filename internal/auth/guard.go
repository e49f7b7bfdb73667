// Package auth issues and verifies access tokens, hashes credentials and
// resolves inbound bearer tokens to a caller identity.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/PaulBabatuyi/dog-adoption-api/internal/apperr"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/data"
)

// Identity is the authenticated caller.
type Identity struct {
	ID       string
	Username string
}

// UserLookup is the store capability the guard needs in strict mode.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*data.User, error)
}

// Guard resolves bearer tokens to identities.
type Guard struct {
	tokens *JWTManager
	users  UserLookup
	// strict re-reads the user on every call and rejects tokens whose user
	// no longer exists; otherwise the claims are trusted as issued.
	strict bool
}

// NewGuard returns a Guard. users may be nil when strict is false.
func NewGuard(tokens *JWTManager, users UserLookup, strict bool) *Guard {
	return &Guard{tokens: tokens, users: users, strict: strict}
}

// BearerToken extracts the token from an Authorization header value.
// It returns "" when the header is empty or uses another scheme.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Resolve validates the Authorization header value and returns the caller.
func (g *Guard) Resolve(ctx context.Context, authorization string) (Identity, error) {
	token := BearerToken(authorization)
	if token == "" {
		return Identity{}, apperr.Unauthenticated(apperr.CodeNoToken, "Access denied. No token provided.")
	}

	claims, err := g.tokens.VerifyToken(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return Identity{}, apperr.Wrap(apperr.KindUnauthenticated, apperr.CodeTokenExpired, "Token expired.", err)
		}
		return Identity{}, apperr.Wrap(apperr.KindUnauthenticated, apperr.CodeInvalidToken, "Invalid token.", err)
	}

	id := Identity{ID: claims.UserID, Username: claims.Username}
	if !g.strict || g.users == nil {
		return id, nil
	}

	user, err := g.users.GetUserByID(ctx, claims.UserID)
	switch {
	case errors.Is(err, data.ErrNotFound), errors.Is(err, data.ErrInvalidID):
		return Identity{}, apperr.Wrap(apperr.KindUnauthenticated, apperr.CodeUserNotFound, "Token invalid. User not found.", err)
	case err != nil:
		return Identity{}, apperr.Internal(err)
	}
	id.Username = user.Username
	return id, nil
}
