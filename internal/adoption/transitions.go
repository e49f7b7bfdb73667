package adoption

import (
	"github.com/PaulBabatuyi/dog-adoption-api/internal/apperr"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/data"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/normalize"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/validation"
)

// Field limits for listings.
const (
	MaxNameLength    = 50
	MaxDescLength    = 500
	MaxMessageLength = 200
)

// NewDog is the input to Create.
type NewDog struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"required,max=500"`
}

func (n *NewDog) normalize() error {
	n.Name = normalize.Text(n.Name)
	n.Description = normalize.Text(n.Description)
	return validation.Struct(n, "Dog name and description are required")
}

type claimInput struct {
	Message string `json:"thankYouMessage" validate:"max=200"`
}

func checkMessage(msg string) (string, error) {
	in := claimInput{Message: normalize.Text(msg)}
	if err := validation.Struct(in, "Thank you message cannot exceed 200 characters"); err != nil {
		return "", err
	}
	return in.Message, nil
}

// CheckAdopt reports whether caller may adopt dog. An adopted listing is a
// conflict for everyone, including its owner.
func CheckAdopt(dog *data.Dog, callerID string) error {
	if dog.IsAdopted() {
		return apperr.Conflict(apperr.CodeAlreadyAdopted, "This dog has already been adopted")
	}
	if dog.OwnerID == callerID {
		return apperr.Forbidden(apperr.CodeSelfAdoption, "You cannot adopt a dog you registered")
	}
	return nil
}

// CheckRemove reports whether caller may remove dog.
func CheckRemove(dog *data.Dog, callerID string) error {
	if dog.OwnerID != callerID {
		return apperr.Forbidden(apperr.CodeNotOwner, "You can only remove dogs you registered")
	}
	if dog.IsAdopted() {
		return apperr.Forbidden(apperr.CodeAdoptedNotRemovable, "Cannot remove an adopted dog")
	}
	return nil
}
