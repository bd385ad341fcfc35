package handler

import (
	"time"

	"accounts/internal/domain/entity"
	"accounts/internal/domain/service"
)

// RegisterRequest is the body of POST /auth/register and POST /users.
type RegisterRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=50,excludes=@"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,maxbytes=72"`
	IsActive    *bool  `json:"is_active"`
	IsSuperuser *bool  `json:"is_superuser"`
}

// LoginRequest accepts either a JSON body or a password-grant form.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// UpdateUserRequest is a partial update: omitted fields stay untouched.
type UpdateUserRequest struct {
	Username    *string `json:"username" validate:"omitempty,min=3,max=50,excludes=@"`
	Email       *string `json:"email" validate:"omitempty,email,max=255"`
	Password    *string `json:"password" validate:"omitempty,min=1,maxbytes=72"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
}

// touchesFlags reports whether the request changes account status or privileges.
func (r *UpdateUserRequest) touchesFlags() bool {
	return r.IsActive != nil || r.IsSuperuser != nil
}

// ListUsersRequest binds the pagination query of GET /users.
type ListUsersRequest struct {
	Skip  int `query:"skip" validate:"min=0"`
	Limit int `query:"limit" validate:"min=0"`
}

// UserResponse is the public view of a user. The password hash is never exposed.
type UserResponse struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresAt   time.Time     `json:"expires_at"`
	User        *UserResponse `json:"user"`
}

func newUserResponse(user *entity.User) *UserResponse {
	return &UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		IsActive:    user.IsActive,
		IsSuperuser: user.IsSuperuser,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func newUserResponses(users []*entity.User) []*UserResponse {
	out := make([]*UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, newUserResponse(user))
	}

	return out
}

func newTokenResponse(token *service.AccessToken, user *entity.User) *TokenResponse {
	return &TokenResponse{
		AccessToken: token.Token,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt,
		User:        newUserResponse(user),
	}
}
