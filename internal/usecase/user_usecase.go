// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"accounts/internal/domain/entity"
	"accounts/internal/domain/service"
)

// --- Input DTOs ---

// RegisterUserInput defines the data required to register a new user.
// Nil flags fall back to active and non-superuser.
type RegisterUserInput struct {
	Username    string
	Email       string
	Password    string
	IsActive    *bool
	IsSuperuser *bool
}

// UpdateUserInput is a partial update; nil fields are left untouched.
type UpdateUserInput struct {
	Username    *string
	Email       *string
	Password    *string
	IsActive    *bool
	IsSuperuser *bool
}

// ListUsersInput is an offset page request.
type ListUsersInput struct {
	Skip  int
	Limit int
}

// LoginInput defines the data required for a user to log in.
type LoginInput struct {
	Username string
	Password string
}

// --- Output DTOs ---

// LoginOutput returns the issued access token after a successful login.
type LoginOutput struct {
	AccessToken *service.AccessToken
	User        *entity.User
}

// UserUsecase defines the interface for user-related business operations.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type UserUsecase interface {
	RegisterUser(ctx context.Context, input *RegisterUserInput) (*entity.User, error)
	GetUser(ctx context.Context, id int64) (*entity.User, error)
	ListUsers(ctx context.Context, input *ListUsersInput) ([]*entity.User, error)
	UpdateUser(ctx context.Context, id int64, input *UpdateUserInput) (*entity.User, error)
	DeleteUser(ctx context.Context, id int64) error
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)

	// Authenticate resolves a bearer token to the active user it was issued for.
	Authenticate(ctx context.Context, token string) (*entity.User, error)
}
