package adoption

import (
	"time"

	"github.com/PaulBabatuyi/dog-adoption-api/internal/data"
)

// UserRef identifies a user in a listing view.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// DogView is a listing with owner and adopter usernames resolved.
type DogView struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	Owner           UserRef    `json:"owner"`
	AdoptedBy       *UserRef   `json:"adoptedBy"`
	AdoptedAt       *time.Time `json:"adoptedAt"`
	ThankYouMessage string     `json:"thankYouMessage"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Page is one page of listings.
type Page struct {
	Dogs       []DogView `json:"dogs"`
	Pagination PageInfo  `json:"pagination"`
}

func newView(d *data.Dog, names map[string]string) DogView {
	v := DogView{
		ID:              d.ID,
		Name:            d.Name,
		Description:     d.Description,
		Status:          string(d.Status),
		Owner:           UserRef{ID: d.OwnerID, Username: names[d.OwnerID]},
		AdoptedAt:       d.AdoptedAt,
		ThankYouMessage: d.ThankYouMessage,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.AdopterID != "" {
		v.AdoptedBy = &UserRef{ID: d.AdopterID, Username: names[d.AdopterID]}
	}
	return v
}

func referencedUsers(dogs ...*data.Dog) []string {
	seen := make(map[string]struct{}, len(dogs)*2)
	ids := make([]string, 0, len(dogs)*2)
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, d := range dogs {
		add(d.OwnerID)
		add(d.AdopterID)
	}
	return ids
}
