package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/faciam-dev/goquent/orm/query"
)

// User represents an application user.
type User struct {
	ID           uint64 `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
}

// UserRepo provides access to the users table.
type UserRepo struct {
	DB          *sql.DB
	Dialect     ormdriver.Dialect
	TablePrefix string
}

// GetByUsername returns a user by name, or nil when absent.
func (r *UserRepo) GetByUsername(ctx context.Context, name string) (*User, error) {
	if r == nil || r.DB == nil {
		return nil, fmt.Errorf("repo not initialized")
	}
	q := query.New(r.DB, r.TablePrefix+"users", r.Dialect).
		Select("id", "username", "password_hash").
		Where("username", name).
		WithContext(ctx)
	var u User
	if err := q.First(&u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
