// Package concurrency holds the small synchronization helpers shared by
// the api package and the HTTP entrypoint: a StopCh for broadcasting shutdown, and a
// LimitedWaitGroup for bounding how many index runs (driver+listener pairs)
// execute at once, so a burst of createIndex mutations can't spawn an
// unbounded number of goroutines and external-process jobs (§5 "Shared
// resources").
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package concurrency

import (
	"sync"

	"go.uber.org/atomic"
)

// StopCh is a specialized channel for broadcasting a single stop signal to
// any number of listeners, such as the server's shutdown path.
type StopCh struct {
	once sync.Once
	ch   chan struct{}
}

func NewStopCh() *StopCh {
	return &StopCh{ch: make(chan struct{})}
}

func (sc *StopCh) Listen() <-chan struct{} { return sc.ch }

func (sc *StopCh) Close() {
	sc.once.Do(func() { close(sc.ch) })
}

// DynSemaphore is a counting semaphore whose size is set at construction,
// the building block LimitedWaitGroup uses to cap concurrent index runs.
type DynSemaphore struct {
	size int
	cur  int
	c    *sync.Cond
	mu   sync.Mutex
}

func NewDynSemaphore(n int) *DynSemaphore {
	sema := &DynSemaphore{size: n}
	sema.c = sync.NewCond(&sema.mu)
	return sema
}

func (s *DynSemaphore) Acquire() {
	s.mu.Lock()
	for s.cur >= s.size {
		s.c.Wait()
	}
	s.cur++
	s.mu.Unlock()
}

func (s *DynSemaphore) Release() {
	s.mu.Lock()
	s.cur--
	s.c.Signal()
	s.mu.Unlock()
}

// LimitedWaitGroup combines a sync.WaitGroup with a DynSemaphore so callers
// can wait for every spawned index run to finish while never running more
// than n of them concurrently.
type LimitedWaitGroup struct {
	wg   sync.WaitGroup
	sema *DynSemaphore
}

func NewLimitedWaitGroup(n int) *LimitedWaitGroup {
	return &LimitedWaitGroup{sema: NewDynSemaphore(n)}
}

// Go blocks until a slot is free, then runs fn in its own goroutine.
func (g *LimitedWaitGroup) Go(fn func()) {
	g.sema.Acquire()
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer g.sema.Release()
		fn()
	}()
}

func (g *LimitedWaitGroup) Wait() { g.wg.Wait() }

// TimeoutGroup is a sync.WaitGroup variant whose Wait can also time out or
// be interrupted by a stop channel — api.Resolver tracks background index
// runs with it, so the entrypoint's shutdown path can bound how long it
// waits for them.
type TimeoutGroup struct {
	jobsLeft  atomic.Int32
	postedFin atomic.Int32
	fin       chan struct{}
}

func NewTimeoutGroup() *TimeoutGroup {
	return &TimeoutGroup{fin: make(chan struct{}, 1)}
}

func (tg *TimeoutGroup) Add(delta int) { tg.jobsLeft.Add(int32(delta)) }

// Count reports how many jobs are currently outstanding. Callers that don't
// know in advance whether any job was ever added (e.g. a shutdown path) can
// use it to skip WaitTimeoutWithStop entirely when there is nothing to wait
// for, since fin is only ever signaled by a Done() call.
func (tg *TimeoutGroup) Count() int32 { return tg.jobsLeft.Load() }

func (tg *TimeoutGroup) Done() {
	if left := tg.jobsLeft.Dec(); left == 0 {
		if posted := tg.postedFin.Swap(1); posted == 0 {
			tg.fin <- struct{}{}
		}
	}
}

// WaitTimeoutWithStop waits until every job is Done, the timeout elapses, or
// stop fires, whichever comes first.
func (tg *TimeoutGroup) WaitTimeoutWithStop(timeout <-chan struct{}, stop <-chan struct{}) (timed, stopped bool) {
	select {
	case <-tg.fin:
		tg.postedFin.Store(0)
		return false, false
	case <-timeout:
		return true, false
	case <-stop:
		return false, true
	}
}
