package bot

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLock_SerializesSameKey(t *testing.T) {
	k := newKeyLock()
	var wg sync.WaitGroup
	inside := 0
	maxInside := 0
	var mu sync.Mutex

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("a")
			defer unlock()
			mu.Lock()
			inside++
			maxInside = max(maxInside, inside)
			mu.Unlock()

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
	assert.Zero(t, k.Len())
}

func TestKeyLock_IndependentKeys(t *testing.T) {
	k := newKeyLock()
	unlockA := k.Lock("a")
	unlockB := k.Lock("b") // must not block
	assert.Equal(t, 2, k.Len())
	unlockA()
	unlockB()
	assert.Zero(t, k.Len())
}
