package portfolioService

import (
	"fmt"
	"sync"
)

// keyedMutex сериализует реплей-и-запись по ключу (счёт, бумага): две
// конкурентные правки одной позиции не должны перезаписать Holding
// результатом устаревшего реплея.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(accountID int64, symbol string) func() {
	key := fmt.Sprintf("%d:%s", accountID, symbol)

	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
