package data

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps users and listings in process memory. It backs the
// "memory" store driver and the HTTP tests. A single mutex serialises every
// mutation, which gives AdoptDog and DeleteAvailableDog the same
// compare-and-set behaviour the database backends get from conditional writes.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]*User
	byUsername map[string]string
	dogs       map[string]*Dog
	// seq orders listings created within the same clock tick
	seq   int64
	order map[string]int64
	now   func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      map[string]*User{},
		byUsername: map[string]string{},
		dogs:       map[string]*Dog{},
		order:      map[string]int64{},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// CreateUser stores a user; usernames are unique.
func (m *MemoryStore) CreateUser(ctx context.Context, username, hashedPassword string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byUsername[username]; ok {
		return nil, ErrDuplicate
	}
	now := m.now()
	u := &User{
		ID:        uuid.NewString(),
		Username:  username,
		Password:  hashedPassword,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.users[u.ID] = u
	m.byUsername[username] = u.ID
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *MemoryStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	if !validID(id) {
		return nil, ErrInvalidID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) UserExists(ctx context.Context, username string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byUsername[username]
	return ok, nil
}

func (m *MemoryStore) GetUsernames(ctx context.Context, ids []string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make(map[string]string, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			names[id] = u.Username
		}
	}
	return names, nil
}

// DeleteUser removes a user. Listings referencing the user are left alone.
func (m *MemoryStore) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.byUsername, u.Username)
	delete(m.users, id)
	return nil
}

func (m *MemoryStore) CreateDog(ctx context.Context, dog *Dog) (*Dog, error) {
	if !validID(dog.OwnerID) {
		return nil, ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	d := &Dog{
		ID:          uuid.NewString(),
		Name:        dog.Name,
		Description: dog.Description,
		OwnerID:     dog.OwnerID,
		Status:      StatusAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.seq++
	m.dogs[d.ID] = d
	m.order[d.ID] = m.seq
	return copyDog(d), nil
}

func (m *MemoryStore) GetDogByID(ctx context.Context, id string) (*Dog, error) {
	if !validID(id) {
		return nil, ErrInvalidID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.dogs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDog(d), nil
}

func (m *MemoryStore) AdoptDog(ctx context.Context, id, adopterID, message string, at time.Time) (*Dog, error) {
	if !validID(id) || !validID(adopterID) {
		return nil, ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.dogs[id]
	if !ok || d.Status != StatusAvailable || d.OwnerID == adopterID {
		return nil, ErrConflict
	}
	adoptedAt := at
	d.Status = StatusAdopted
	d.AdopterID = adopterID
	d.AdoptedAt = &adoptedAt
	d.ThankYouMessage = message
	d.UpdatedAt = at
	return copyDog(d), nil
}

func (m *MemoryStore) DeleteAvailableDog(ctx context.Context, id, ownerID string) error {
	if !validID(id) || !validID(ownerID) {
		return ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.dogs[id]
	if !ok || d.OwnerID != ownerID || d.Status != StatusAvailable {
		return ErrConflict
	}
	delete(m.dogs, id)
	delete(m.order, id)
	return nil
}

func (m *MemoryStore) ListDogs(ctx context.Context, q DogQuery) ([]*Dog, int64, error) {
	if (q.OwnerID != "" && !validID(q.OwnerID)) || (q.AdopterID != "" && !validID(q.AdopterID)) {
		return nil, 0, ErrInvalidID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*Dog
	for _, d := range m.dogs {
		if matches(d, q) {
			matched = append(matched, d)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if q.Sort == SortNewestAdopted && a.AdoptedAt != nil && b.AdoptedAt != nil && !a.AdoptedAt.Equal(*b.AdoptedAt) {
			return a.AdoptedAt.After(*b.AdoptedAt)
		}
		if q.Sort == SortNewestCreated && !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return m.order[a.ID] > m.order[b.ID]
	})

	total := int64(len(matched))
	start := min(max(q.Skip, 0), total)
	end := total
	if q.Limit > 0 && q.Limit < total-start {
		end = start + q.Limit
	}

	page := make([]*Dog, 0, end-start)
	for _, d := range matched[start:end] {
		page = append(page, copyDog(d))
	}
	return page, total, nil
}

func matches(d *Dog, q DogQuery) bool {
	if q.OwnerID != "" && d.OwnerID != q.OwnerID {
		return false
	}
	if q.AdopterID != "" && d.AdopterID != q.AdopterID {
		return false
	}
	if q.Status != "" && d.Status != q.Status {
		return false
	}
	if q.HasAdopter != nil && (d.AdopterID != "") != *q.HasAdopter {
		return false
	}
	return true
}

func copyDog(d *Dog) *Dog {
	cp := *d
	if d.AdoptedAt != nil {
		at := *d.AdoptedAt
		cp.AdoptedAt = &at
	}
	return &cp
}
