package serverutils

import (
	"sync"
	"testing"
)

func TestIncrLocalCountsConcurrentRequests(t *testing.T) {
	rl := NewRateLimiter(nil, nil)

	const n = 64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			rl.incrLocal("window-key")
		}()
	}
	wg.Wait()

	if got := rl.incrLocal("window-key"); got != n+1 {
		t.Errorf("count = %d, want %d; concurrent first hits were lost", got, n+1)
	}
}

func TestIncrLocalKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(nil, nil)

	rl.incrLocal("a")
	rl.incrLocal("a")
	if got := rl.incrLocal("b"); got != 1 {
		t.Errorf("fresh key count = %d, want 1", got)
	}
}
