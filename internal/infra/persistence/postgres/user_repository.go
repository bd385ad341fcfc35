package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"accounts/internal/domain/entity"
	"accounts/internal/domain/repository"
	"accounts/internal/errors"
	"accounts/internal/infra/persistence/model"
)

// userRepository implements the domain.UserRepository interface using GORM.
type userRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewUserRepository is the constructor for userRepository.
// It returns the repository as a domain.UserRepository interface, adhering to dependency inversion.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts the user and copies the generated ID and timestamps back onto it.
func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	now := repo.now()
	userM := fromUserDomain(user)
	userM.ID = 0
	userM.CreatedAt = now
	userM.UpdatedAt = now

	if err := repo.db.WithContext(ctx).Create(userM).Error; err != nil {
		return translateWriteError(err, "failed to create user")
	}

	user.ID = userM.ID
	user.CreatedAt = userM.CreatedAt
	user.UpdatedAt = userM.UpdatedAt

	return nil
}

// FindByID retrieves a single user by their unique ID.
func (repo *userRepository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	return repo.findOne(ctx, "id = ?", id)
}

// FindByUsername retrieves a single user by their login name.
func (repo *userRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	return repo.findOne(ctx, "username = ?", username)
}

// FindByEmail retrieves a single user by their email address.
func (repo *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return repo.findOne(ctx, "email = ?", email)
}

func (repo *userRepository) findOne(ctx context.Context, query string, arg any) (*entity.User, error) {
	var userM model.UserModel
	err := repo.db.WithContext(ctx).Where(query, arg).Take(&userM).Error
	if err != nil {
		// If the error is 'record not found', return a domain-specific error.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrapf(err, "failed to find user where %s", query)
	}

	return toUserDomain(&userM), nil
}

// List returns one page of users in id order.
func (repo *userRepository) List(ctx context.Context, skip, limit int) ([]*entity.User, error) {
	var userMs []*model.UserModel
	err := repo.db.WithContext(ctx).
		Order("id ASC").
		Offset(skip).
		Limit(limit).
		Find(&userMs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}

	users := make([]*entity.User, 0, len(userMs))
	for _, userM := range userMs {
		users = append(users, toUserDomain(userM))
	}

	return users, nil
}

// Update writes only the submitted columns plus updated_at.
func (repo *userRepository) Update(ctx context.Context, user *entity.User, changes repository.UserChanges) error {
	if changes.IsEmpty() {
		return nil
	}

	now := repo.now()
	values := toUpdateColumns(changes)
	values["updated_at"] = now

	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ?", user.ID).
		Updates(values)
	if result.Error != nil {
		return translateWriteError(result.Error, "failed to update user")
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	changes.ApplyTo(user)
	user.UpdatedAt = now

	return nil
}

// Delete removes the row permanently.
func (repo *userRepository) Delete(ctx context.Context, user *entity.User) error {
	result := repo.db.WithContext(ctx).
		Where("id = ?", user.ID).
		Delete(&model.UserModel{})
	if result.Error != nil {
		return translateWriteError(result.Error, "failed to delete user")
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

// --- Mapper Functions ---
// These helpers convert between domain entities and persistence models.

// toUserDomain converts a GORM UserModel to a domain User entity.
func toUserDomain(data *model.UserModel) *entity.User {
	if data == nil {
		return nil
	}

	return &entity.User{
		ID:           data.ID,
		Username:     data.Username,
		Email:        data.Email,
		PasswordHash: data.HashedPassword,
		IsActive:     data.IsActive,
		IsSuperuser:  data.IsSuperuser,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}

// fromUserDomain converts a domain User entity to a GORM UserModel for persistence.
func fromUserDomain(data *entity.User) *model.UserModel {
	if data == nil {
		return nil
	}

	return &model.UserModel{
		ID:             data.ID,
		Username:       data.Username,
		Email:          data.Email,
		HashedPassword: data.PasswordHash,
		IsActive:       data.IsActive,
		IsSuperuser:    data.IsSuperuser,
		CreatedAt:      data.CreatedAt,
		UpdatedAt:      data.UpdatedAt,
	}
}

// toUpdateColumns keys the submitted fields by column name.
func toUpdateColumns(changes repository.UserChanges) map[string]any {
	values := make(map[string]any, 6)
	if changes.Username != nil {
		values["username"] = *changes.Username
	}
	if changes.Email != nil {
		values["email"] = *changes.Email
	}
	if changes.PasswordHash != nil {
		values["hashed_password"] = *changes.PasswordHash
	}
	if changes.IsActive != nil {
		values["is_active"] = *changes.IsActive
	}
	if changes.IsSuperuser != nil {
		values["is_superuser"] = *changes.IsSuperuser
	}

	return values
}
