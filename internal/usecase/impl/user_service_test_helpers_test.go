package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"accounts/config"
	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig(defaultLimit, maxLimit int) *config.Config {
	return &config.Config{
		Auth: &config.AuthConfig{
			SecretKey:                "test-secret",
			Algorithm:                "HS256",
			AccessTokenExpireMinutes: 30,
			BcryptCost:               4,
		},
		Pagination: &config.PaginationConfig{
			DefaultLimit: defaultLimit,
			MaxLimit:     maxLimit,
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

func strPtr(v string) *string {
	return &v
}

// memoryUserRepository is an in-memory store that enforces the same unique
// constraints as the users table.
type memoryUserRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*entity.User

	// afterEmailCheck runs at the end of every FindByEmail call.
	afterEmailCheck func()
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{users: map[int64]*entity.User{}}
}

func (r *memoryUserRepository) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUniqueLocked(user.Username, user.Email, 0); err != nil {
		return err
	}

	r.nextID++
	stored := *user
	stored.ID = r.nextID
	r.users[stored.ID] = &stored
	user.ID = stored.ID

	return nil
}

func (r *memoryUserRepository) FindByID(_ context.Context, id int64) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	clone := *user

	return &clone, nil
}

func (r *memoryUserRepository) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	return r.findBy(func(u *entity.User) bool { return u.Username == username })
}

func (r *memoryUserRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	user, err := r.findBy(func(u *entity.User) bool { return u.Email == email })
	if r.afterEmailCheck != nil {
		r.afterEmailCheck()
	}

	return user, err
}

func (r *memoryUserRepository) findBy(match func(*entity.User) bool) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if match(user) {
			clone := *user

			return &clone, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r *memoryUserRepository) List(_ context.Context, skip, limit int) ([]*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]*entity.User, 0, limit)
	for id := int64(1); id <= r.nextID && len(users) < limit; id++ {
		user, ok := r.users[id]
		if !ok {
			continue
		}
		if skip > 0 {
			skip--

			continue
		}
		clone := *user
		users = append(users, &clone)
	}

	return users, nil
}

func (r *memoryUserRepository) Update(_ context.Context, user *entity.User, changes repository.UserChanges) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[user.ID]
	if !ok {
		return repository.ErrUserNotFound
	}

	next := *stored
	changes.ApplyTo(&next)
	if err := r.checkUniqueLocked(next.Username, next.Email, next.ID); err != nil {
		return err
	}

	r.users[user.ID] = &next
	changes.ApplyTo(user)

	return nil
}

func (r *memoryUserRepository) Delete(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	delete(r.users, user.ID)

	return nil
}

func (r *memoryUserRepository) checkUniqueLocked(username, email string, selfID int64) error {
	for _, other := range r.users {
		if other.ID == selfID {
			continue
		}
		if other.Username == username {
			return domainerrors.ErrDuplicateUsername
		}
		if other.Email == email {
			return domainerrors.ErrDuplicateEmail
		}
	}

	return nil
}

// memoryTxManager runs the unit of work directly against the in-memory store.
type memoryTxManager struct {
	repo *memoryUserRepository
}

func (m *memoryTxManager) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	return fn(m)
}

func (m *memoryTxManager) UserRepo() repository.UserRepository {
	return m.repo
}
