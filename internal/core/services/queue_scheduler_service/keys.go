package queue_scheduler_service

import "sync"

// Пер-ключевые мьютексы для сериализации операций над одной парой
// (врач, день). Операции по разным ключам друг друга не блокируют.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock блокирует ключ и возвращает функцию разблокировки
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	lock, exists := k.locks[key]
	if !exists {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
