// Package adoption implements the listing lifecycle: creating listings,
// claiming them, removing them and the paginated list views.
//
// A listing moves from available to adopted exactly once. The transition
// checks in this package run against a snapshot, and the store then applies
// the change with a conditional write that re-asserts the same preconditions.
// When that write matches nothing the listing is read again so the caller
// gets the error that describes its current state.
package adoption

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/PaulBabatuyi/dog-adoption-api/internal/apperr"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/data"
)

// DogStore persists listings.
type DogStore interface {
	CreateDog(ctx context.Context, dog *data.Dog) (*data.Dog, error)
	GetDogByID(ctx context.Context, id string) (*data.Dog, error)
	AdoptDog(ctx context.Context, id, adopterID, message string, at time.Time) (*data.Dog, error)
	DeleteAvailableDog(ctx context.Context, id, ownerID string) error
	ListDogs(ctx context.Context, q data.DogQuery) ([]*data.Dog, int64, error)
}

// UserDirectory resolves user ids to usernames.
type UserDirectory interface {
	GetUsernames(ctx context.Context, ids []string) (map[string]string, error)
}

// Options tunes an Engine.
type Options struct {
	DefaultPageSize int64
	// MaxPageSize caps requested page sizes; zero means no cap.
	MaxPageSize int64
}

// Engine runs listing operations.
type Engine struct {
	dogs  DogStore
	users UserDirectory
	opts  Options
	log   *zap.Logger
	now   func() time.Time
}

// NewEngine returns an Engine.
func NewEngine(dogs DogStore, users UserDirectory, opts Options, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = DefaultPageSize
	}
	return &Engine{
		dogs:  dogs,
		users: users,
		opts:  opts,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

var (
	errInvalidID   = apperr.Validation(apperr.CodeInvalidID, "Invalid dog ID")
	errDogNotFound = apperr.NotFound(apperr.CodeDogNotFound, "Dog not found")
)

// storeErr classifies a store failure on a single listing.
func storeErr(err error) error {
	switch {
	case errors.Is(err, data.ErrInvalidID):
		return errInvalidID
	case errors.Is(err, data.ErrNotFound):
		return errDogNotFound
	default:
		return apperr.Internal(err)
	}
}

// Create registers a new available listing owned by ownerID.
func (e *Engine) Create(ctx context.Context, ownerID string, in NewDog) (*DogView, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	dog, err := e.dogs.CreateDog(ctx, &data.Dog{
		Name:        in.Name,
		Description: in.Description,
		OwnerID:     ownerID,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	e.log.Info("dog registered", zap.String("dog_id", dog.ID), zap.String("owner_id", ownerID))
	return e.view(ctx, dog)
}

// Get returns a single listing.
func (e *Engine) Get(ctx context.Context, id string) (*DogView, error) {
	dog, err := e.dogs.GetDogByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return e.view(ctx, dog)
}

// Claim adopts listing id on behalf of callerID.
func (e *Engine) Claim(ctx context.Context, callerID, id, message string) (*DogView, error) {
	message, err := checkMessage(message)
	if err != nil {
		return nil, err
	}

	dog, err := e.dogs.GetDogByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if err := CheckAdopt(dog, callerID); err != nil {
		return nil, err
	}

	adopted, err := e.dogs.AdoptDog(ctx, id, callerID, message, e.now())
	if errors.Is(err, data.ErrConflict) {
		// someone else changed the listing between the read and the write
		return nil, e.reclassify(ctx, id, func(d *data.Dog) error { return CheckAdopt(d, callerID) })
	}
	if err != nil {
		return nil, storeErr(err)
	}

	e.log.Info("dog adopted", zap.String("dog_id", id), zap.String("adopter_id", callerID))
	return e.view(ctx, adopted)
}

// Remove deletes listing id if callerID owns it and it is still available.
func (e *Engine) Remove(ctx context.Context, callerID, id string) error {
	dog, err := e.dogs.GetDogByID(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	if err := CheckRemove(dog, callerID); err != nil {
		return err
	}

	err = e.dogs.DeleteAvailableDog(ctx, id, callerID)
	if errors.Is(err, data.ErrConflict) {
		return e.reclassify(ctx, id, func(d *data.Dog) error { return CheckRemove(d, callerID) })
	}
	if err != nil {
		return storeErr(err)
	}

	e.log.Info("dog removed", zap.String("dog_id", id), zap.String("owner_id", callerID))
	return nil
}

// reclassify re-reads a listing whose conditional write matched nothing and
// returns the error its current state calls for.
func (e *Engine) reclassify(ctx context.Context, id string, check func(*data.Dog) error) error {
	dog, err := e.dogs.GetDogByID(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	if err := check(dog); err != nil {
		return err
	}
	return apperr.Conflict(apperr.CodeAlreadyAdopted, "This dog has already been adopted")
}

// ListOwned lists callerID's listings, newest first. status may be empty,
// "available" or "adopted".
func (e *Engine) ListOwned(ctx context.Context, callerID, status string, page PageRequest) (*Page, error) {
	q := data.DogQuery{OwnerID: callerID, Sort: data.SortNewestCreated}
	if status != "" {
		s := data.DogStatus(status)
		if !s.Valid() {
			return nil, invalidStatus()
		}
		q.Status = s
	}
	return e.list(ctx, q, page)
}

// ListClaimed lists the listings callerID adopted, most recently adopted first.
func (e *Engine) ListClaimed(ctx context.Context, callerID string, page PageRequest) (*Page, error) {
	return e.list(ctx, data.DogQuery{
		AdopterID: callerID,
		Status:    data.StatusAdopted,
		Sort:      data.SortNewestAdopted,
	}, page)
}

// ListAll lists every listing, newest first. The status filter is derived
// from the presence of an adopter; "registered" is accepted as a synonym
// for "available".
func (e *Engine) ListAll(ctx context.Context, status string, page PageRequest) (*Page, error) {
	q := data.DogQuery{Sort: data.SortNewestCreated}
	switch status {
	case "":
	case string(data.StatusAvailable), "registered":
		q.HasAdopter = new(bool)
	case string(data.StatusAdopted):
		has := true
		q.HasAdopter = &has
	default:
		return nil, invalidStatus()
	}
	return e.list(ctx, q, page)
}

func invalidStatus() error {
	return apperr.Validation(apperr.CodeInvalidStatus, "Status must be available or adopted")
}

func (e *Engine) list(ctx context.Context, q data.DogQuery, page PageRequest) (*Page, error) {
	page.normalize(e.opts.DefaultPageSize, e.opts.MaxPageSize)
	q.Skip = page.skip()
	q.Limit = page.Limit

	dogs, total, err := e.dogs.ListDogs(ctx, q)
	if err != nil {
		if errors.Is(err, data.ErrInvalidID) {
			return nil, apperr.Validation(apperr.CodeInvalidID, "Invalid user ID")
		}
		return nil, apperr.Internal(err)
	}

	names, err := e.users.GetUsernames(ctx, referencedUsers(dogs...))
	if err != nil {
		return nil, apperr.Internal(err)
	}

	views := make([]DogView, 0, len(dogs))
	for _, d := range dogs {
		views = append(views, newView(d, names))
	}
	return &Page{Dogs: views, Pagination: NewPageInfo(page.Page, page.Limit, total)}, nil
}

func (e *Engine) view(ctx context.Context, dog *data.Dog) (*DogView, error) {
	names, err := e.users.GetUsernames(ctx, referencedUsers(dog))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	v := newView(dog, names)
	return &v, nil
}
