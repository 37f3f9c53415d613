// services/services.go
package services

import (
	"errors"
	"sync"

	"github.com/dareroom/gameserver/models"
)

// 错误定义
var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoundNotFound = errors.New("round not found")
	ErrProofNotFound = errors.New("proof not found")
	ErrInvalidVote   = errors.New("invalid vote value")
	ErrInvalidStatus = errors.New("invalid round status")
)

// Publisher pushes room-scoped events to live subscribers. Defined
// here so services does not depend on the broadcast package.
type Publisher interface {
	PublishRoomEvent(roomID, event string, payload interface{})
}

// Metrics is the slice of the monitor the services report into.
type Metrics interface {
	RoundCreated()
	VoteCast()
	ProofResolved(status models.ProofStatus)
}

// lockTable hands out one mutex per key so operations on the same
// entity serialize while distinct entities proceed in parallel.
// Entries are never removed; the key space is bounded by the number of
// proofs a deployment sees.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

func (t *lockTable) get(key string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[key] = lock
	}
	return lock
}
