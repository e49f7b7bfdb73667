package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/PaulBabatuyi/dog-adoption-api/internal/data"
)

func (s *Store) CreateUser(ctx context.Context, username, hashedPassword string) (*data.User, error) {
	now := time.Now().UTC()
	user := &data.User{
		ID:        uuid.NewString(),
		Username:  username,
		Password:  hashedPassword,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, data.ErrDuplicate
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*data.User, error) {
	return s.getUser(ctx, `SELECT id, username, password, created_at, updated_at FROM users WHERE username = $1`, username)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*data.User, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.getUser(ctx, `SELECT id, username, password, created_at, updated_at FROM users WHERE id = $1`, uid)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (*data.User, error) {
	user := &data.User{}
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Username, &user.Password, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (s *Store) UserExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (s *Store) GetUsernames(ctx context.Context, ids []string) (map[string]string, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	names := make(map[string]string, len(valid))
	if len(valid) == 0 {
		return names, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, username FROM users WHERE id = ANY($1::uuid[])`, valid)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, username string
		if err := rows.Scan(&id, &username); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		names[id] = username
	}
	return names, rows.Err()
}
