// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"accounts/internal/domain/entity"
)

// ErrUserNotFound is a domain-specific error returned when a user is not found.
var ErrUserNotFound = errors.New("user not found")

// UserChanges is a partial update: nil fields were not submitted and stay untouched.
type UserChanges struct {
	Username     *string
	Email        *string
	PasswordHash *string
	IsActive     *bool
	IsSuperuser  *bool
}

// IsEmpty reports whether no field was submitted.
func (c UserChanges) IsEmpty() bool {
	return c.Username == nil && c.Email == nil && c.PasswordHash == nil && c.IsActive == nil && c.IsSuperuser == nil
}

// Fields lists the submitted column names in a stable order.
func (c UserChanges) Fields() []string {
	fields := make([]string, 0, 5)
	if c.Username != nil {
		fields = append(fields, "username")
	}
	if c.Email != nil {
		fields = append(fields, "email")
	}
	if c.PasswordHash != nil {
		fields = append(fields, "password")
	}
	if c.IsActive != nil {
		fields = append(fields, "is_active")
	}
	if c.IsSuperuser != nil {
		fields = append(fields, "is_superuser")
	}

	return fields
}

// ApplyTo copies the submitted fields onto user.
func (c UserChanges) ApplyTo(user *entity.User) {
	if c.Username != nil {
		user.Username = *c.Username
	}
	if c.Email != nil {
		user.Email = *c.Email
	}
	if c.PasswordHash != nil {
		user.PasswordHash = *c.PasswordHash
	}
	if c.IsActive != nil {
		user.IsActive = *c.IsActive
	}
	if c.IsSuperuser != nil {
		user.IsSuperuser = *c.IsSuperuser
	}
}

// UserRepository defines the standard operations for user persistence.
// The application layer will depend on this interface, not the concrete implementation.
type UserRepository interface {
	// Create persists a new user and fills in the generated ID and timestamps.
	Create(ctx context.Context, user *entity.User) error

	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id int64) (*entity.User, error)

	// FindByUsername retrieves a single user by their username.
	FindByUsername(ctx context.Context, username string) (*entity.User, error)

	// FindByEmail retrieves a single user by their email address.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// List returns up to limit users ordered by ID, skipping the first skip rows.
	List(ctx context.Context, skip, limit int) ([]*entity.User, error)

	// Update writes only the submitted fields and applies them to user.
	Update(ctx context.Context, user *entity.User, changes UserChanges) error

	// Delete removes the user row permanently.
	Delete(ctx context.Context, user *entity.User) error
}
