// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"accounts/internal/delivery/api/response"
	deliverycontext "accounts/internal/delivery/context"
	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/errors"
	"accounts/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// UserHandlerParams holds dependencies for UserHandler, injected by Fx.
type UserHandlerParams struct {
	fx.In

	UserUC usecase.UserUsecase
	Logger *slog.Logger
}

// UserHandler serves the authenticated /users endpoints.
type UserHandler struct {
	userUC usecase.UserUsecase
	logger *slog.Logger
}

// NewUserHandler is the constructor for UserHandler
func NewUserHandler(params UserHandlerParams) *UserHandler {
	return &UserHandler{
		userUC: params.UserUC,
		logger: params.Logger,
	}
}

// CreateUser lets a superuser create any account, including other superusers.
func (h *UserHandler) CreateUser(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid user input")
	}

	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userUC.RegisterUser(c.Request().Context(), &usecase.RegisterUserInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		IsActive:    req.IsActive,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, newUserResponse(user))
}

// GetMe returns the authenticated user.
func (h *UserHandler) GetMe(c echo.Context) error {
	principal, err := mustPrincipal(c)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, newUserResponse(principal))
}

// ListUsers returns one page of users.
func (h *UserHandler) ListUsers(c echo.Context) error {
	var req ListUsersRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "skip and limit must be integers")
	}

	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	users, err := h.userUC.ListUsers(c.Request().Context(), &usecase.ListUsersInput{
		Skip:  req.Skip,
		Limit: req.Limit,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newUserResponses(users))
}

// GetUser returns a single user by ID.
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := parseUserID(c)
	if err != nil {
		return err
	}

	user, err := h.userUC.GetUser(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newUserResponse(user))
}

// UpdateUser applies a partial update. Users may edit their own profile;
// status and privilege flags are reserved for superusers.
func (h *UserHandler) UpdateUser(c echo.Context) error {
	id, err := parseUserID(c)
	if err != nil {
		return err
	}

	principal, err := mustPrincipal(c)
	if err != nil {
		return err
	}

	var req UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid update input")
	}

	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	if !principal.CanManage(id) || (req.touchesFlags() && !principal.IsSuperuser) {
		return domainerrors.ErrForbidden
	}

	user, err := h.userUC.UpdateUser(c.Request().Context(), id, &usecase.UpdateUserInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		IsActive:    req.IsActive,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newUserResponse(user))
}

// DeleteUser permanently removes a user.
func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, err := parseUserID(c)
	if err != nil {
		return err
	}

	principal, err := mustPrincipal(c)
	if err != nil {
		return err
	}

	if !principal.CanManage(id) {
		return domainerrors.ErrForbidden
	}

	if err := h.userUC.DeleteUser(c.Request().Context(), id); err != nil {
		return errors.WithStack(err)
	}

	deliverycontext.LoggerFromContext(c.Request().Context(), h.logger).
		Info("User deleted via API", slog.Int64("user_id", id), slog.Int64("by", principal.ID))

	return response.NoContent(c)
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"})
}

func parseUserID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domainerrors.ErrValidationFailed.WithDetails("id: must be a positive integer")
	}

	return id, nil
}

func mustPrincipal(c echo.Context) (*entity.User, error) {
	principal, ok := deliverycontext.GetPrincipal(c)
	if !ok {
		return nil, domainerrors.ErrMissingToken
	}

	return principal, nil
}
