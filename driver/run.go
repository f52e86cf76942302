package driver

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crocme10/ctl2mimir/dispatch"
	"github.com/crocme10/ctl2mimir/jobs"
	"github.com/crocme10/ctl2mimir/notify"
	"github.com/crocme10/ctl2mimir/state"
	"github.com/crocme10/ctl2mimir/store"
)

// RunIndex spawns the two independent tasks that §2/§5 describe for one
// index creation — the driver and the status listener — communicating only
// through the bus and the durable store, never through shared memory. It
// returns once both have finished, or the first error either reports.
//
// Grounded on the downloader's dispatcher, which fans worker goroutines out
// under a single errgroup.WithContext so one failure cancels its siblings.
func RunIndex(ctx context.Context, rec store.Record, cfg dispatch.Config, collab jobs.Collaborator, endpoint, topic string, st store.Store, log *zap.SugaredLogger) (state.State, error) {
	group, gctx := errgroup.WithContext(ctx)

	pub, err := notify.NewPublisher(endpoint, topic, log)
	if err != nil {
		return state.State{}, err
	}

	var final state.State
	group.Go(func() error {
		defer pub.Close() //nolint:errcheck
		d := NewDriver(rec.IndexID, cfg, collab, pub, nil, log)
		final = d.Run(gctx)
		return nil
	})

	group.Go(func() error {
		l, err := notify.NewListener(endpoint, topic, rec.IndexID, st, log)
		if err != nil {
			return err
		}
		return l.Run(gctx)
	})

	if err := group.Wait(); err != nil {
		return final, err
	}
	return final, nil
}
