package inmemdb

import (
	"sync"

	"github.com/trezcool/jamii/core/user"
)

type (
	DB struct {
		user *userTable
	}

	// userTable keeps insertion order; index maps ids to positions in rows.
	userTable struct {
		mutex   sync.RWMutex
		rows    []*user.User
		index   map[string]int
		pkCount int
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{index: make(map[string]int)},
	}
}
