// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/fx"

	"accounts/config"
	deliverycontext "accounts/internal/delivery/context"
	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"
	"accounts/internal/domain/service"
	"accounts/internal/errors"
	"accounts/internal/usecase"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500

	minUsernameLength = 3
	maxUsernameLength = 50
)

// userService implements the UserUsecase interface.
type userService struct {
	txManager    repository.TransactionManager
	userRepo     repository.UserRepository
	hasher       service.PasswordHasher
	tokenService service.TokenService
	publisher    service.EventPublisher
	defaultLimit int
	maxLimit     int
	logger       *slog.Logger
	now          func() time.Time
}

// UserServiceParams holds dependencies for UserService, injected by Fx.
type UserServiceParams struct {
	fx.In

	TxManager    repository.TransactionManager
	UserRepo     repository.UserRepository
	Hasher       service.PasswordHasher
	TokenService service.TokenService
	Publisher    service.EventPublisher `optional:"true"`
	Config       *config.Config
	Logger       *slog.Logger
}

// NewUserService is the constructor for userService. It receives all dependencies as interfaces.
func NewUserService(params UserServiceParams) usecase.UserUsecase {
	defaultLimit, maxLimit := defaultListLimit, maxListLimit
	if params.Config != nil && params.Config.Pagination != nil {
		if params.Config.Pagination.MaxLimit > 0 {
			maxLimit = params.Config.Pagination.MaxLimit
		}
		if params.Config.Pagination.DefaultLimit > 0 {
			defaultLimit = params.Config.Pagination.DefaultLimit
		}
	}

	return &userService{
		txManager:    params.TxManager,
		userRepo:     params.UserRepo,
		hasher:       params.Hasher,
		tokenService: params.TokenService,
		publisher:    params.Publisher,
		defaultLimit: min(defaultLimit, maxLimit),
		maxLimit:     maxLimit,
		logger:       params.Logger,
		now:          time.Now,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *userService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.LoggerFromContext(ctx, srv.logger)
}

// RegisterUser checks username and email, hashes the password and inserts the
// user in one unit of work. A concurrent duplicate that passes the checks is
// rejected by the store's unique constraints with the same errors.
func (srv *userService) RegisterUser(ctx context.Context, input *usecase.RegisterUserInput) (*entity.User, error) {
	if err := validateUsername(input.Username); err != nil {
		return nil, err
	}

	email := entity.NormalizeEmail(input.Email)
	srv.log(ctx).Info("Starting registration", slog.String("username", input.Username), slog.String("email", email))

	newUser := &entity.User{
		Username:    input.Username,
		Email:       email,
		IsActive:    true,
		IsSuperuser: false,
	}
	if input.IsActive != nil {
		newUser.IsActive = *input.IsActive
	}
	if input.IsSuperuser != nil {
		newUser.IsSuperuser = *input.IsSuperuser
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		if err := ensureUsernameFree(ctx, userRepo, newUser.Username, 0); err != nil {
			return err
		}
		if err := ensureEmailFree(ctx, userRepo, newUser.Email, 0); err != nil {
			return err
		}

		hash, err := srv.hashPassword(ctx, input.Password)
		if err != nil {
			return err
		}
		newUser.PasswordHash = hash

		return userRepo.Create(ctx, newUser)
	})
	if err != nil {
		srv.log(ctx).Warn("Registration failed", slog.String("username", input.Username), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to register user")
	}

	srv.log(ctx).Info("User registered", slog.Int64("user_id", newUser.ID))
	srv.publish(ctx, entity.AccountEventRegistered, newUser, nil)

	return newUser, nil
}

// GetUser fetches a single user by ID.
func (srv *userService) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	user, err := srv.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "failed to get user")
	}

	return user, nil
}

// ListUsers returns one page of users ordered by ID.
func (srv *userService) ListUsers(ctx context.Context, input *usecase.ListUsersInput) ([]*entity.User, error) {
	skip, limit := 0, 0
	if input != nil {
		skip, limit = input.Skip, input.Limit
	}
	if skip < 0 {
		return nil, domainerrors.ErrValidationFailed.WithDetails("skip must not be negative")
	}

	users, err := srv.userRepo.List(ctx, skip, srv.clampLimit(limit))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}

	return users, nil
}

func (srv *userService) clampLimit(limit int) int {
	if limit <= 0 {
		return srv.defaultLimit
	}

	return min(limit, srv.maxLimit)
}

// UpdateUser applies only the submitted fields. A new password is re-hashed
// and a new username or email must not belong to another user.
func (srv *userService) UpdateUser(ctx context.Context, id int64, input *usecase.UpdateUserInput) (*entity.User, error) {
	var (
		updated *entity.User
		fields  []string
	)

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		user, err := userRepo.FindByID(ctx, id)
		if err != nil {
			return mapLookupError(err, "failed to load user for update")
		}

		changes, err := srv.buildChanges(ctx, userRepo, user, input)
		if err != nil {
			return err
		}
		if changes.IsEmpty() {
			updated = user

			return nil
		}

		if err := userRepo.Update(ctx, user, changes); err != nil {
			return mapLookupError(err, "failed to update user")
		}
		updated = user
		fields = changes.Fields()

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to update user")
	}

	if len(fields) > 0 {
		srv.log(ctx).Info("User updated", slog.Int64("user_id", updated.ID), slog.Any("fields", fields))
		srv.publish(ctx, entity.AccountEventUpdated, updated, fields)
	}

	return updated, nil
}

func (srv *userService) buildChanges(
	ctx context.Context,
	userRepo repository.UserRepository,
	user *entity.User,
	input *usecase.UpdateUserInput,
) (repository.UserChanges, error) {
	var changes repository.UserChanges
	if input == nil {
		return changes, nil
	}

	if input.Username != nil && *input.Username != user.Username {
		if err := validateUsername(*input.Username); err != nil {
			return changes, err
		}
		if err := ensureUsernameFree(ctx, userRepo, *input.Username, user.ID); err != nil {
			return changes, err
		}
		changes.Username = input.Username
	}

	if input.Email != nil {
		email := entity.NormalizeEmail(*input.Email)
		if email != user.Email {
			if err := ensureEmailFree(ctx, userRepo, email, user.ID); err != nil {
				return changes, err
			}
			changes.Email = &email
		}
	}

	if input.Password != nil {
		hash, err := srv.hashPassword(ctx, *input.Password)
		if err != nil {
			return changes, err
		}
		changes.PasswordHash = &hash
	}

	changes.IsActive = input.IsActive
	changes.IsSuperuser = input.IsSuperuser

	return changes, nil
}

// DeleteUser removes the user permanently.
func (srv *userService) DeleteUser(ctx context.Context, id int64) error {
	var deleted *entity.User

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		user, err := userRepo.FindByID(ctx, id)
		if err != nil {
			return mapLookupError(err, "failed to load user for delete")
		}

		if err := userRepo.Delete(ctx, user); err != nil {
			return mapLookupError(err, "failed to delete user")
		}
		deleted = user

		return nil
	})
	if err != nil {
		return errors.Wrap(err, "failed to delete user")
	}

	srv.log(ctx).Info("User deleted", slog.Int64("user_id", deleted.ID))
	srv.publish(ctx, entity.AccountEventDeleted, deleted, nil)

	return nil
}

// Login verifies credentials and issues an access token whose subject is the user ID.
// Usernames can change, IDs cannot.
func (srv *userService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	user, err := srv.findByLogin(ctx, input.Username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, domainerrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user for login")
	}

	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		srv.log(ctx).Info("Login rejected", slog.Int64("user_id", user.ID))

		return nil, domainerrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, domainerrors.ErrUserInactive
	}

	token, err := srv.tokenService.IssueAccessToken(strconv.FormatInt(user.ID, 10))
	if err != nil {
		srv.log(ctx).Error("Failed to issue access token", slog.Int64("user_id", user.ID), slog.Any("error", err))

		return nil, domainerrors.ErrTokenIssueFailed
	}

	return &usecase.LoginOutput{AccessToken: token, User: user}, nil
}

// Authenticate verifies the token and loads the user named by its subject.
func (srv *userService) Authenticate(ctx context.Context, token string) (*entity.User, error) {
	if token == "" {
		return nil, domainerrors.ErrMissingToken
	}

	claims, err := srv.tokenService.Verify(token)
	if err != nil {
		return nil, domainerrors.ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, domainerrors.ErrInvalidToken
	}

	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, mapLookupError(err, "failed to load token subject")
	}
	if !user.IsActive {
		return nil, domainerrors.ErrUserInactive
	}

	return user, nil
}

// findByLogin treats a login containing "@" as an email and anything else as a
// username. Usernames never contain "@", so the two cannot shadow each other.
func (srv *userService) findByLogin(ctx context.Context, login string) (*entity.User, error) {
	if strings.Contains(login, "@") {
		return srv.userRepo.FindByEmail(ctx, entity.NormalizeEmail(login))
	}

	return srv.userRepo.FindByUsername(ctx, login)
}

func validateUsername(username string) error {
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return domainerrors.ErrValidationFailed.WithDetails("username: must be 3 to 50 characters")
	}
	if strings.Contains(username, "@") {
		return domainerrors.ErrValidationFailed.WithDetails("username: must not contain @")
	}

	return nil
}

func (srv *userService) hashPassword(ctx context.Context, password string) (string, error) {
	hash, err := srv.hasher.Hash(password)
	if errors.Is(err, domainerrors.ErrValidationFailed) {
		return "", err
	}
	if err != nil {
		srv.log(ctx).Error("Failed to hash password", slog.Any("error", err))

		return "", domainerrors.ErrPasswordHashFailed
	}

	return hash, nil
}

// publish emits a committed change. Failures are logged and never fail the operation.
func (srv *userService) publish(ctx context.Context, eventType entity.AccountEventType, user *entity.User, fields []string) {
	if srv.publisher == nil {
		return
	}

	event := &entity.AccountEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		RequestID:  deliverycontext.RequestIDFromContext(ctx),
		UserID:     user.ID,
		Username:   user.Username,
		Email:      user.Email,
		Fields:     fields,
		OccurredAt: srv.now().UTC(),
	}

	if err := srv.publisher.PublishAccountEvent(ctx, event); err != nil {
		srv.log(ctx).Warn("Failed to publish account event",
			slog.String("event_type", eventType.String()),
			slog.Int64("user_id", user.ID),
			slog.Any("error", err),
		)
	}
}

func ensureUsernameFree(ctx context.Context, userRepo repository.UserRepository, username string, selfID int64) error {
	existing, err := userRepo.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to check username")
	}
	if existing.ID != selfID {
		return domainerrors.ErrDuplicateUsername
	}

	return nil
}

func ensureEmailFree(ctx context.Context, userRepo repository.UserRepository, email string, selfID int64) error {
	existing, err := userRepo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to check email")
	}
	if existing.ID != selfID {
		return domainerrors.ErrDuplicateEmail
	}

	return nil
}

// mapLookupError turns a repository miss into the client-facing not-found error.
func mapLookupError(err error, message string) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return domainerrors.ErrUserNotFound
	}

	return errors.Wrap(err, message)
}
