package inmemdb

import (
	"context"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/college/core/user"
)

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

// checkUniqueness must be called with the lock held.
func (repo *userRepository) checkUniqueness(usr user.User) error {
	for _, u := range repo.db.user.t {
		if u.ID == usr.ID {
			continue
		}
		if u.Username == usr.Username {
			return user.ErrUsernameExists
		}
		if u.Email == usr.Email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if err := repo.checkUniqueness(usr); err != nil {
		return user.User{}, err
	}
	repo.db.user.t[usr.ID] = &usr
	repo.db.user.ids = append(repo.db.user.ids, usr.ID)
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.user.t[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.user.t {
		if usr.Username == username {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, id string, apply func(usr *user.User) error) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.user.t[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr := *orig
	if err := apply(&usr); err != nil {
		return user.User{}, err
	}
	usr.ID = orig.ID
	if err := repo.checkUniqueness(usr); err != nil {
		return user.User{}, err
	}
	repo.db.user.t[id] = &usr
	return usr, nil
}

func (repo *userRepository) SetLastLogin(_ context.Context, id string, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr, ok := repo.db.user.t[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.LastLogin = null.TimeFrom(at)
	return nil
}

func (repo *userRepository) CountUsers(_ context.Context, role string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var count int
	for _, usr := range repo.db.user.t {
		if role == "" || usr.Role == role {
			count++
		}
	}
	return count, nil
}

// EachUser takes a snapshot of the matching users, then calls fn outside the lock
// so that fn may use the store.
func (repo *userRepository) EachUser(ctx context.Context, filter user.QueryFilter, fn func(user.User) error) error {
	repo.db.mutex.RLock()
	search := strings.ToLower(filter.Search)
	matches := make([]user.User, 0, len(repo.db.user.ids))
	for _, id := range repo.db.user.ids {
		usr := repo.db.user.t[id]
		if filter.Role != "" && usr.Role != filter.Role {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(usr.FullName), search) &&
			!strings.Contains(strings.ToLower(usr.Username), search) {
			continue
		}
		matches = append(matches, *usr)
	}
	repo.db.mutex.RUnlock()

	for _, usr := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(usr); err != nil {
			return err
		}
	}
	return nil
}
