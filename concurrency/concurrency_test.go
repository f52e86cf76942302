package concurrency_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/crocme10/ctl2mimir/concurrency"
)

func TestStopChClosesOnceAndBroadcasts(t *testing.T) {
	sc := concurrency.NewStopCh()
	sc.Close()
	sc.Close() // must not panic on a second Close

	select {
	case <-sc.Listen():
	case <-time.After(time.Second):
		t.Fatal("expected Listen to observe the close")
	}
}

func TestLimitedWaitGroupBoundsConcurrency(t *testing.T) {
	const limit = 2
	g := concurrency.NewLimitedWaitGroup(limit)

	var current, peak int32
	for i := 0; i < 10; i++ {
		g.Go(func() {
			n := atomic.AddInt32(&current, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
		})
	}
	g.Wait()

	if peak > limit {
		t.Fatalf("expected at most %d concurrent goroutines, observed %d", limit, peak)
	}
}
