package queue_scheduler_service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := newKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("doctor|2026-09-10")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := newKeyedMutex()

	unlockFirst := km.Lock("first")
	defer unlockFirst()

	// Другой ключ не блокируется занятым первым
	done := make(chan struct{})
	go func() {
		unlock := km.Lock("second")
		unlock()
		close(done)
	}()

	<-done
}
