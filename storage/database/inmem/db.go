// Package inmemdb keeps every table in process memory, guarded by a single RWMutex.
// Nothing is persisted.
package inmemdb

import (
	"sync"

	"github.com/trezcool/college/core/fee"
	"github.com/trezcool/college/core/notice"
	"github.com/trezcool/college/core/user"
)

type (
	DB struct {
		mutex     sync.RWMutex
		user      *userTable
		payment   []fee.Payment
		structure *structureTable
		notice    []notice.Notice
	}

	// tables keep their rows by id plus the ids in insertion order.
	userTable struct {
		t   map[string]*user.User
		ids []string
	}

	structureTable struct {
		t   map[string]*fee.Structure
		ids []string
	}
)

func Open() *DB {
	return &DB{
		user:      &userTable{t: make(map[string]*user.User)},
		structure: &structureTable{t: make(map[string]*fee.Structure)},
	}
}
