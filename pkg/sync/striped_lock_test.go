package sync

import (
	"fmt"
	base "sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripedLock_SerializesPerKey(t *testing.T) {
	keyCount := 64
	workersPerKey := 4
	operationCount := 10000

	l := NewStripedLock(4)

	counters := make([]int, keyCount)
	start := make(chan struct{})

	var wg base.WaitGroup
	for i := 0; i < keyCount; i++ {
		for j := 0; j < workersPerKey; j++ {
			wg.Add(1)

			go func(id int) {
				defer wg.Done()

				<-start

				key := []byte(fmt.Sprintf("account%d", id))
				for op := 0; op < operationCount; op++ {
					mu := l.Get(key)
					mu.Lock()
					counters[id]++
					mu.Unlock()
				}
			}(i)
		}
	}

	close(start)
	wg.Wait()

	for _, count := range counters {
		assert.Equal(t, workersPerKey*operationCount, count)
	}
}
