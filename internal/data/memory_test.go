package data

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Users(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	u, err := m.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)

	_, err = m.CreateUser(ctx, "alice", "other")
	require.ErrorIs(t, err, ErrDuplicate)

	got, err := m.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = m.GetUserByUsername(ctx, "Alice")
	assert.ErrorIs(t, err, ErrNotFound, "usernames are case-sensitive")

	_, err = m.GetUserByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidID)

	names, err := m.GetUsernames(ctx, []string{u.ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{u.ID: "alice"}, names)

	require.NoError(t, m.DeleteUser(ctx, u.ID))
	ok, err := m.UserExists(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_AdoptIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	owner, _ := m.CreateUser(ctx, "owner", "h")
	dog, err := m.CreateDog(ctx, &Dog{Name: "Max", Description: "loyal", OwnerID: owner.ID})
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, dog.Status)

	const claimants = 16
	ids := make([]string, claimants)
	for i := range ids {
		u, err := m.CreateUser(ctx, "claimant-"+string(rune('a'+i)), "h")
		require.NoError(t, err)
		ids[i] = u.ID
	}

	var wins int32
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := m.AdoptDog(ctx, dog.ID, id, "thanks", time.Now()); err == nil {
				atomic.AddInt32(&wins, 1)
			} else {
				assert.ErrorIs(t, err, ErrConflict)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	got, err := m.GetDogByID(ctx, dog.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAdopted, got.Status)
	assert.Contains(t, ids, got.AdopterID)
}

func TestMemoryStore_AdoptRejectsOwner(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	owner, _ := m.CreateUser(ctx, "owner", "h")
	dog, _ := m.CreateDog(ctx, &Dog{Name: "Max", Description: "loyal", OwnerID: owner.ID})

	_, err := m.AdoptDog(ctx, dog.ID, owner.ID, "", time.Now())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemoryStore_DeleteAvailableDog(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	owner, _ := m.CreateUser(ctx, "owner", "h")
	other, _ := m.CreateUser(ctx, "other", "h")
	charlie, _ := m.CreateDog(ctx, &Dog{Name: "Charlie", Description: "beagle", OwnerID: owner.ID})
	luna, _ := m.CreateDog(ctx, &Dog{Name: "Luna", Description: "husky", OwnerID: owner.ID})
	_, err := m.AdoptDog(ctx, luna.ID, other.ID, "", time.Now())
	require.NoError(t, err)

	assert.ErrorIs(t, m.DeleteAvailableDog(ctx, charlie.ID, other.ID), ErrConflict)
	assert.ErrorIs(t, m.DeleteAvailableDog(ctx, luna.ID, owner.ID), ErrConflict)
	require.NoError(t, m.DeleteAvailableDog(ctx, charlie.ID, owner.ID))

	_, err = m.GetDogByID(ctx, charlie.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ListDogs(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	owner, _ := m.CreateUser(ctx, "owner", "h")
	adopter, _ := m.CreateUser(ctx, "adopter", "h")

	var created []*Dog
	for _, name := range []string{"Dog1", "Dog2", "Dog3", "Dog4"} {
		d, err := m.CreateDog(ctx, &Dog{Name: name, Description: "x", OwnerID: owner.ID})
		require.NoError(t, err)
		created = append(created, d)
	}
	_, err := m.AdoptDog(ctx, created[0].ID, adopter.ID, "", time.Now())
	require.NoError(t, err)
	_, err = m.AdoptDog(ctx, created[2].ID, adopter.ID, "", time.Now().Add(time.Second))
	require.NoError(t, err)

	all, total, err := m.ListDogs(ctx, DogQuery{OwnerID: owner.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Equal(t, "Dog4", all[0].Name, "newest first")

	page, total, err := m.ListDogs(ctx, DogQuery{OwnerID: owner.ID, Skip: 2, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, page, 1)
	assert.Equal(t, "Dog2", page[0].Name)

	adopted, total, err := m.ListDogs(ctx, DogQuery{AdopterID: adopter.ID, Status: StatusAdopted, Sort: SortNewestAdopted})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, "Dog3", adopted[0].Name, "newest adoption first")

	yes := false
	available, total, err := m.ListDogs(ctx, DogQuery{HasAdopter: &yes})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, d := range available {
		assert.Equal(t, StatusAvailable, d.Status)
	}

	beyond, total, err := m.ListDogs(ctx, DogQuery{Skip: 100, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Empty(t, beyond)

	beyond, _, err = m.ListDogs(ctx, DogQuery{Skip: math.MaxInt64, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond)

	huge, _, err := m.ListDogs(ctx, DogQuery{Skip: 1, Limit: math.MaxInt64})
	require.NoError(t, err)
	assert.Len(t, huge, 3)

	negative, _, err := m.ListDogs(ctx, DogQuery{Skip: -10, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, negative, 2)
}
