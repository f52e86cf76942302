// Package driver owns the per-index event queue and runs the loop described
// in spec.md §4.4: pop an event, transition, publish the resulting state,
// dispatch the job for that state, enqueue whatever event the job produced,
// repeat until an absorbing state is published or, after a Reset back to
// NotAvailable, no further event is queued. The driver never touches the
// durable store directly — that is the status listener's job (package
// notify), reached only through the bus.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package driver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/crocme10/ctl2mimir/dispatch"
	"github.com/crocme10/ctl2mimir/fsm"
	"github.com/crocme10/ctl2mimir/jobs"
	"github.com/crocme10/ctl2mimir/notify"
	"github.com/crocme10/ctl2mimir/state"
)

// Driver runs exactly one index's FSM to completion. It is not safe for
// concurrent use — each index creation builds its own Driver, matching
// "one cooperative task per logical unit of work" (§5).
type Driver struct {
	IndexID int64
	Config  dispatch.Config
	Collab  jobs.Collaborator
	Pub     notify.Publisher
	Clock   fsm.Clock
	Log     *zap.SugaredLogger

	queue   []state.Event
	current state.State
}

// NewDriver constructs a Driver seeded at NotAvailable (§4.1 "initial
// state"), ready to be started with a Download event.
func NewDriver(indexID int64, cfg dispatch.Config, collab jobs.Collaborator, pub notify.Publisher, clock fsm.Clock, log *zap.SugaredLogger) *Driver {
	if clock == nil {
		clock = fsm.SystemClock
	}
	return &Driver{
		IndexID: indexID,
		Config:  cfg,
		Collab:  collab,
		Pub:     pub,
		Clock:   clock,
		Log:     log,
		current: state.NewNotAvailable(),
	}
}

// Run drives the FSM until it publishes an absorbing state (Available or
// Failure) or the queue runs empty (NotAvailable after a Reset), publishing
// every intermediate state along the way (§4.4). It returns the final,
// published State. ctx is checked after each published state, before the
// next dispatch, and is also handed to the dispatched job; the package jobs
// implementations abort on cancellation, and the resulting error event is
// published as the next state before Run returns.
func (d *Driver) Run(ctx context.Context) state.State {
	d.enqueue(state.Download())

	for len(d.queue) > 0 {
		ev := d.pop()
		d.current = fsm.Next(d.current, ev, d.Clock)
		observeTransition(d.current)

		if err := d.Pub.Publish(d.IndexID, d.current); err != nil && d.Log != nil {
			d.Log.Errorw("could not publish state, continuing run", "index_id", d.IndexID, "err", err)
		}

		if d.current.Absorbing() {
			observeRunComplete(d.current)
			break
		}

		select {
		case <-ctx.Done():
			return d.current
		default:
		}

		from := d.current
		started := time.Now()
		next, ok := dispatch.Dispatch(ctx, d.Config, d.Collab, from)
		jobDuration.WithLabelValues(string(from.Type)).Observe(time.Since(started).Seconds())
		if ok {
			d.enqueue(next)
		}
	}
	return d.current
}

func (d *Driver) enqueue(e state.Event) { d.queue = append(d.queue, e) }

func (d *Driver) pop() state.Event {
	e := d.queue[0]
	d.queue = d.queue[1:]
	return e
}
