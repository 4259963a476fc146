package service

import (
	"sync"

	"github.com/google/uuid"
)

// OfferLocks сериализует чтение-изменение-запись одного предложения внутри процесса.
// Между процессами защищает версия строки в репозитории.
type OfferLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*offerLock
}

type offerLock struct {
	mu   sync.Mutex
	refs int
}

// NewOfferLocks создаёт набор блокировок.
func NewOfferLocks() *OfferLocks {
	return &OfferLocks{locks: make(map[uuid.UUID]*offerLock)}
}

// Lock захватывает блокировку предложения и возвращает функцию освобождения.
func (l *OfferLocks) Lock(offerID uuid.UUID) func() {
	l.mu.Lock()
	lock, ok := l.locks[offerID]
	if !ok {
		lock = &offerLock{}
		l.locks[offerID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, offerID)
		}
		l.mu.Unlock()
	}
}

func (l *OfferLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
