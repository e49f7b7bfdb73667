package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaulBabatuyi/dog-adoption-api/internal/data"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		t.Skip("DATABASE_DSN not set; skipping integration test")
	}

	ctx := context.Background()
	s, err := Open(ctx, dsn, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))

	_, err = s.db.ExecContext(ctx, `TRUNCATE dogs, users`)
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMigrateUsesEmbeddedFS(t *testing.T) {
	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return errors.New("stop")
	}

	s := &Store{}
	err := s.Migrate(context.Background())
	require.Error(t, err)
	assert.Equal(t, ".", gotDir)
}

func TestStoreUsersAndDogs(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	owner, err := s.CreateUser(ctx, "dogowner1", "hash")
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "dogowner1", "hash")
	require.ErrorIs(t, err, data.ErrDuplicate)

	adopter, err := s.CreateUser(ctx, "dogowner2", "hash")
	require.NoError(t, err)

	got, err := s.GetUserByUsername(ctx, "dogowner1")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, got.ID)

	_, err = s.GetUserByID(ctx, "invalid-id")
	assert.ErrorIs(t, err, data.ErrInvalidID)

	names, err := s.GetUsernames(ctx, []string{owner.ID, adopter.ID})
	require.NoError(t, err)
	assert.Equal(t, "dogowner2", names[adopter.ID])

	dog, err := s.CreateDog(ctx, &data.Dog{Name: "Max", Description: "A loyal companion", OwnerID: owner.ID})
	require.NoError(t, err)
	assert.Equal(t, data.StatusAvailable, dog.Status)

	_, err = s.AdoptDog(ctx, dog.ID, owner.ID, "", time.Now())
	assert.ErrorIs(t, err, data.ErrConflict)

	adopted, err := s.AdoptDog(ctx, dog.ID, adopter.ID, "thanks", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, data.StatusAdopted, adopted.Status)
	assert.Equal(t, adopter.ID, adopted.AdopterID)
	require.NotNil(t, adopted.AdoptedAt)

	assert.ErrorIs(t, s.DeleteAvailableDog(ctx, dog.ID, owner.ID), data.ErrConflict)

	claimed, total, err := s.ListDogs(ctx, data.DogQuery{AdopterID: adopter.ID, Status: data.StatusAdopted, Sort: data.SortNewestAdopted, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, claimed, 1)
	assert.Equal(t, "Max", claimed[0].Name)
}

func TestStoreConcurrentAdoption(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	owner, err := s.CreateUser(ctx, "owner", "hash")
	require.NoError(t, err)
	dog, err := s.CreateDog(ctx, &data.Dog{Name: "Luna", Description: "A gentle husky", OwnerID: owner.ID})
	require.NoError(t, err)

	var claimants []string
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		u, err := s.CreateUser(ctx, "claimant-"+name, "hash")
		require.NoError(t, err)
		claimants = append(claimants, u.ID)
	}

	var (
		mu   sync.Mutex
		wins int
		wg   sync.WaitGroup
	)
	for _, id := range claimants {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := s.AdoptDog(ctx, dog.ID, id, "", time.Now()); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}
