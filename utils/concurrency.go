package utils

import "sync"

// WorkerGroup tracks a set of long-running worker goroutines, one per
// tracked subscription. Workers are independent and never synchronize with
// each other; the group only exists so main can wait for them to stop.
type WorkerGroup struct {
	wg sync.WaitGroup
}

// Spawn starts fn in its own goroutine.
func (g *WorkerGroup) Spawn(fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn()
	}()
}

// Wait blocks until every spawned worker has returned.
func (g *WorkerGroup) Wait() {
	g.wg.Wait()
}
