package data

import "time"

// DogStatus is the adoption state of a listing.
type DogStatus string

const (
	StatusAvailable DogStatus = "available"
	StatusAdopted   DogStatus = "adopted"
)

// Valid reports whether s is one of the known states.
func (s DogStatus) Valid() bool {
	return s == StatusAvailable || s == StatusAdopted
}

// User is a registered account. Password holds the bcrypt hash only.
type User struct {
	ID        string
	Username  string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Dog is an adoptable listing. AdopterID and AdoptedAt are empty until the
// listing is adopted.
type Dog struct {
	ID              string
	Name            string
	Description     string
	OwnerID         string
	Status          DogStatus
	AdopterID       string
	AdoptedAt       *time.Time
	ThankYouMessage string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsAdopted reports whether the listing has been claimed.
func (d *Dog) IsAdopted() bool {
	return d.Status == StatusAdopted
}

// SortOrder selects the ordering of listing scans.
type SortOrder int

const (
	// SortNewestCreated orders by creation time, newest first.
	SortNewestCreated SortOrder = iota
	// SortNewestAdopted orders by adoption time, newest first.
	SortNewestAdopted
)

// DogQuery describes a filtered, sorted and paginated listing scan.
// Zero-valued filters are ignored.
type DogQuery struct {
	OwnerID   string
	AdopterID string
	// Status filters on the stored status field.
	Status DogStatus
	// HasAdopter filters on the presence of an adopter reference.
	HasAdopter *bool
	Sort       SortOrder
	Skip       int64
	Limit      int64
}
