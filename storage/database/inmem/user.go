package inmemdb

import (
	"context"
	"strconv"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/user"
)

type userRegistry struct {
	db *userTable
}

func NewUserRegistry(db *DB) user.Registry {
	return &userRegistry{db: db.user}
}

func (reg *userRegistry) query() []user.User {
	users := make([]user.User, 0, len(reg.db.rows))
	for _, u := range reg.db.rows {
		users = append(users, u.Clone())
	}
	return users
}

func (reg *userRegistry) findByEmail(email string) (*user.User, bool) {
	for _, u := range reg.db.rows {
		if u.Email == email {
			return u, true
		}
	}
	return nil, false
}

func (reg *userRegistry) Append(_ context.Context, usr user.User) (user.User, error) {
	reg.db.mutex.Lock()
	defer reg.db.mutex.Unlock()

	usr = usr.Clone()
	usr.Email = core.CleanString(usr.Email, true /* lower */)
	if usr.Email != "" {
		if _, exists := reg.findByEmail(usr.Email); exists {
			return user.User{}, user.ErrEmailExists
		}
	}

	reg.db.pkCount++
	usr.ID = strconv.Itoa(reg.db.pkCount)
	reg.db.index[usr.ID] = len(reg.db.rows)
	reg.db.rows = append(reg.db.rows, &usr)
	return usr.Clone(), nil
}

func (reg *userRegistry) FindByCredentials(_ context.Context, email, pwd string) (*user.User, error) {
	reg.db.mutex.RLock()
	defer reg.db.mutex.RUnlock()

	usr, ok := reg.findByEmail(core.CleanString(email, true /* lower */))
	if !ok || len(usr.PasswordHash) == 0 || usr.CheckPassword(pwd) != nil {
		return nil, nil
	}
	found := usr.Clone()
	return &found, nil
}

func (reg *userRegistry) GetByID(_ context.Context, id string) (user.User, error) {
	reg.db.mutex.RLock()
	defer reg.db.mutex.RUnlock()

	if idx, ok := reg.db.index[id]; ok {
		return reg.db.rows[idx].Clone(), nil
	}
	return user.User{}, user.ErrNotFound
}

func (reg *userRegistry) GetByEmail(_ context.Context, email string) (user.User, error) {
	reg.db.mutex.RLock()
	defer reg.db.mutex.RUnlock()

	if usr, ok := reg.findByEmail(core.CleanString(email, true /* lower */)); ok {
		return usr.Clone(), nil
	}
	return user.User{}, user.ErrNotFound
}

func (reg *userRegistry) QueryAll(_ context.Context) ([]user.User, error) {
	reg.db.mutex.RLock()
	defer reg.db.mutex.RUnlock()
	return reg.query(), nil
}

func (reg *userRegistry) Update(_ context.Context, usr user.User) (user.User, error) {
	reg.db.mutex.Lock()
	defer reg.db.mutex.Unlock()

	idx, ok := reg.db.index[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr = usr.Clone()
	usr.Email = core.CleanString(usr.Email, true /* lower */)
	if other, exists := reg.findByEmail(usr.Email); exists && other.ID != usr.ID {
		return user.User{}, user.ErrEmailExists
	}
	// keep the stored password when none is given
	if usr.PasswordHash == nil {
		usr.PasswordHash = reg.db.rows[idx].PasswordHash
	}
	reg.db.rows[idx] = &usr
	return usr.Clone(), nil
}
