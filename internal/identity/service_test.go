package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/PaulBabatuyi/dog-adoption-api/internal/apperr"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/auth"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/data"
)

// racingStore reports a username as free and then fails the insert, the way
// the unique index does when another registration wins.
type racingStore struct{ *data.MemoryStore }

func (r racingStore) UserExists(ctx context.Context, username string) (bool, error) {
	return false, nil
}

func (r racingStore) CreateUser(ctx context.Context, username, hashed string) (*data.User, error) {
	return nil, data.ErrDuplicate
}

func newTestService(store UserStore, tokens TokenIssuer) *Service {
	s := NewService(store, tokens, nil)
	s.hash = func(p string) (string, error) { return "hashed:" + p, nil }
	s.check = func(hash, p string) error {
		if hash != "hashed:"+p {
			return errors.New("mismatch")
		}
		return nil
	}
	return s
}

func TestRegisterThenAuthenticate(t *testing.T) {
	ctx := context.Background()
	tokens := auth.NewJWTManager("secret", 24*time.Hour)
	s := newTestService(data.NewMemoryStore(), tokens)

	reg, err := s.Register(ctx, Credentials{Username: "  newuser ", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "newuser", reg.User.Username)
	assert.NotEmpty(t, reg.Token)

	login, err := s.Authenticate(ctx, Credentials{Username: "newuser", Password: "password123"})
	require.NoError(t, err)

	claims, err := tokens.VerifyToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
	assert.Equal(t, "newuser", claims.Username)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestService(data.NewMemoryStore(), auth.NewJWTManager("secret", time.Hour))

	cases := []Credentials{
		{Password: "password123"},
		{Username: "newuser"},
		{Username: "   ", Password: "password123"},
	}
	for _, in := range cases {
		_, err := s.Register(context.Background(), in)
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		ae, _ := apperr.As(err)
		assert.True(t, strings.Contains(ae.Message, "required"), ae.Message)
	}

	_, err := s.Register(context.Background(), Credentials{Username: "newuser", Password: "123"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRegisterConflict(t *testing.T) {
	ctx := context.Background()
	s := newTestService(data.NewMemoryStore(), auth.NewJWTManager("secret", time.Hour))

	_, err := s.Register(ctx, Credentials{Username: "existinguser", Password: "password123"})
	require.NoError(t, err)

	_, err = s.Register(ctx, Credentials{Username: "existinguser", Password: "password123"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, apperr.CodeUsernameTaken, apperr.CodeOf(err))

	// usernames are case-sensitive
	_, err = s.Register(ctx, Credentials{Username: "ExistingUser", Password: "password123"})
	assert.NoError(t, err)
}

func TestRegisterLostRace(t *testing.T) {
	s := newTestService(racingStore{data.NewMemoryStore()}, auth.NewJWTManager("secret", time.Hour))

	_, err := s.Register(context.Background(), Credentials{Username: "dup", Password: "password123"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestAuthenticateUniformFailure(t *testing.T) {
	ctx := context.Background()
	s := newTestService(data.NewMemoryStore(), auth.NewJWTManager("secret", time.Hour))
	_, err := s.Register(ctx, Credentials{Username: "loginuser", Password: "password123"})
	require.NoError(t, err)

	_, errUnknown := s.Authenticate(ctx, Credentials{Username: "nobody", Password: "password123"})
	_, errWrong := s.Authenticate(ctx, Credentials{Username: "loginuser", Password: "wrongpass"})

	for _, err := range []error{errUnknown, errWrong} {
		ae, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.KindUnauthenticated, ae.Kind)
		assert.Equal(t, "Invalid credentials", ae.Message)
	}

	_, err = s.Authenticate(ctx, Credentials{Username: "loginuser"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRegisterUsesBcrypt(t *testing.T) {
	ctx := context.Background()
	store := data.NewMemoryStore()
	s := NewService(store, auth.NewJWTManager("secret", time.Hour), nil)

	_, err := s.Register(ctx, Credentials{Username: "hashme", Password: "password123"})
	require.NoError(t, err)

	u, err := store.GetUserByUsername(ctx, "hashme")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", u.Password)
	assert.NoError(t, auth.CheckPassword(u.Password, "password123"))
}

func TestRegisterRejectsOverlongPassword(t *testing.T) {
	ctx := context.Background()
	s := NewService(data.NewMemoryStore(), auth.NewJWTManager("secret", time.Hour), nil)

	_, err := s.Register(ctx, Credentials{Username: "u", Password: strings.Repeat("p", 80)})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	// 73 bytes in 37 runes
	_, err = s.Register(ctx, Credentials{Username: "u", Password: strings.Repeat("ééé", 12) + "x"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = s.Register(ctx, Credentials{Username: "u", Password: strings.Repeat("p", MaxPasswordBytes)})
	require.NoError(t, err)
}

func TestRegisterMapsHashLengthError(t *testing.T) {
	s := newTestService(data.NewMemoryStore(), auth.NewJWTManager("secret", time.Hour))
	s.hash = func(string) (string, error) { return "", bcrypt.ErrPasswordTooLong }

	_, err := s.Register(context.Background(), Credentials{Username: "u", Password: "password123"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
