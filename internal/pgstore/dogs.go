package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PaulBabatuyi/dog-adoption-api/internal/data"
)

const dogColumns = `id, name, description, owner_id, status, adopted_by, adopted_at, thank_you_message, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDog(row rowScanner) (*data.Dog, error) {
	var (
		dog       data.Dog
		status    string
		adoptedBy sql.NullString
		adoptedAt sql.NullTime
	)
	err := row.Scan(&dog.ID, &dog.Name, &dog.Description, &dog.OwnerID, &status,
		&adoptedBy, &adoptedAt, &dog.ThankYouMessage, &dog.CreatedAt, &dog.UpdatedAt)
	if err != nil {
		return nil, err
	}
	dog.Status = data.DogStatus(status)
	if adoptedBy.Valid {
		dog.AdopterID = adoptedBy.String
	}
	if adoptedAt.Valid {
		at := adoptedAt.Time
		dog.AdoptedAt = &at
	}
	return &dog, nil
}

func (s *Store) CreateDog(ctx context.Context, dog *data.Dog) (*data.Dog, error) {
	owner, err := parseID(dog.OwnerID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO dogs (id, name, description, owner_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 RETURNING `+dogColumns,
		uuid.New(), dog.Name, dog.Description, owner, string(data.StatusAvailable), now)

	created, err := scanDog(row)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

func (s *Store) GetDogByID(ctx context.Context, id string) (*data.Dog, error) {
	did, err := parseID(id)
	if err != nil {
		return nil, err
	}

	dog, err := scanDog(s.db.QueryRowContext(ctx, `SELECT `+dogColumns+` FROM dogs WHERE id = $1`, did))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return dog, nil
}

// AdoptDog is a single conditional UPDATE; it only matches a row that is still
// available and not owned by the adopter.
func (s *Store) AdoptDog(ctx context.Context, id, adopterID, message string, at time.Time) (*data.Dog, error) {
	did, err := parseID(id)
	if err != nil {
		return nil, err
	}
	adopter, err := parseID(adopterID)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`UPDATE dogs
		 SET status = $3, adopted_by = $2, adopted_at = $4, thank_you_message = $5, updated_at = $4
		 WHERE id = $1 AND status = $6 AND owner_id <> $2
		 RETURNING `+dogColumns,
		did, adopter, string(data.StatusAdopted), at, message, string(data.StatusAvailable))

	dog, err := scanDog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return dog, nil
}

func (s *Store) DeleteAvailableDog(ctx context.Context, id, ownerID string) error {
	did, err := parseID(id)
	if err != nil {
		return err
	}
	owner, err := parseID(ownerID)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM dogs WHERE id = $1 AND owner_id = $2 AND status = $3`,
		did, owner, string(data.StatusAvailable))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return data.ErrConflict
	}
	return nil
}

func (s *Store) ListDogs(ctx context.Context, q data.DogQuery) ([]*data.Dog, int64, error) {
	where, args, err := dogWhere(q)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM dogs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	order := ` ORDER BY created_at DESC, id DESC`
	if q.Sort == data.SortNewestAdopted {
		order = ` ORDER BY adopted_at DESC NULLS LAST, id DESC`
	}
	query := `SELECT ` + dogColumns + ` FROM dogs` + where + order
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	args = append(args, q.Skip)
	query += fmt.Sprintf(` OFFSET $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	dogs := make([]*data.Dog, 0)
	for rows.Next() {
		dog, err := scanDog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		dogs = append(dogs, dog)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return dogs, total, nil
}

func dogWhere(q data.DogQuery) (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if q.OwnerID != "" {
		owner, err := parseID(q.OwnerID)
		if err != nil {
			return "", nil, err
		}
		add("owner_id = $%d", owner)
	}
	if q.AdopterID != "" {
		adopter, err := parseID(q.AdopterID)
		if err != nil {
			return "", nil, err
		}
		add("adopted_by = $%d", adopter)
	}
	if q.Status != "" {
		add("status = $%d", string(q.Status))
	}
	if q.HasAdopter != nil {
		if *q.HasAdopter {
			conds = append(conds, "adopted_by IS NOT NULL")
		} else {
			conds = append(conds, "adopted_by IS NULL")
		}
	}

	if len(conds) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}
