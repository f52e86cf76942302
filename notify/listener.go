package notify

import (
	"context"

	"github.com/nats-io/nats.go"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/crocme10/ctl2mimir/ctlerr"
	"github.com/crocme10/ctl2mimir/state"
	"github.com/crocme10/ctl2mimir/store"
)

// Listener mirrors one index's published states into the durable store
// (§4.5). It never reads the driver's memory — everything it knows comes
// off the bus, which is deliberate (§9 "No shared mutable FSM state").
type Listener struct {
	nc      *nats.Conn
	topic   string
	indexID int64
	store   store.Store
	log     *zap.SugaredLogger
}

func NewListener(endpoint, topic string, indexID int64, st store.Store, log *zap.SugaredLogger) (*Listener, error) {
	nc, err := nats.Connect("nats://" + endpoint)
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.Bus, err, "could not connect listener to "+endpoint)
	}
	return &Listener{nc: nc, topic: topic, indexID: indexID, store: st, log: log}, nil
}

// Run subscribes to the topic and, for every message concerning this
// listener's indexID, decodes the State and writes it into the index
// record's status column. A message that fails to parse is logged and
// skipped — it never aborts the listener (§4.5). Run returns when it
// observes Available, or NotAvailable following a Reset, or when ctx is
// canceled.
func (l *Listener) Run(ctx context.Context) error {
	defer l.nc.Close()

	msgs := make(chan *nats.Msg, 64)
	sub, err := l.nc.ChanSubscribe(l.topic, msgs)
	if err != nil {
		return ctlerr.Wrap(ctlerr.Bus, err, "could not subscribe to "+l.topic)
	}
	defer sub.Unsubscribe() //nolint:errcheck

	sawAnyEvent := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var env Envelope
			if err := jsoniter.Unmarshal(msg.Data, &env); err != nil {
				if l.log != nil {
					l.log.Warnw("could not decode notification envelope, skipping", "err", err)
				}
				continue
			}
			if env.IndexID != l.indexID {
				continue
			}
			s, err := state.Unmarshal(env.Status)
			if err != nil {
				if l.log != nil {
					l.log.Warnw("could not decode state, skipping", "index_id", l.indexID, "err", err)
				}
				continue
			}

			if _, err := l.store.UpdateStatus(ctx, l.indexID, string(env.Status)); err != nil {
				return ctlerr.Wrap(ctlerr.Store, err, "could not persist status update")
			}

			if s.Type == state.Available {
				return nil
			}
			if s.Type == state.NotAvailable && sawAnyEvent {
				return nil
			}
			sawAnyEvent = true
		}
	}
}
