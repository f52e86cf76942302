package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	graphql "github.com/graph-gophers/graphql-go"
	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/crocme10/ctl2mimir/concurrency"
	"github.com/crocme10/ctl2mimir/config"
	"github.com/crocme10/ctl2mimir/ctlerr"
	"github.com/crocme10/ctl2mimir/dispatch"
	"github.com/crocme10/ctl2mimir/driver"
	"github.com/crocme10/ctl2mimir/jobs"
	"github.com/crocme10/ctl2mimir/notify"
	"github.com/crocme10/ctl2mimir/store"
)

// Resolver is the root resolver the schema binds to. It holds everything a
// request needs to reach the store, spawn a driver+listener pair (§5), or
// subscribe directly to the bus for the notifications subscription.
type Resolver struct {
	Store    store.Store
	Settings *config.Settings
	Collab   jobs.Collaborator
	Log      *zap.SugaredLogger
	// Runs bounds how many driver+listener pairs run concurrently. Nil is
	// fine — CreateIndex then just spawns unbounded.
	Runs *concurrency.LimitedWaitGroup
	// Inflight tracks driver+listener pairs still running so a graceful
	// shutdown can wait, up to a bound, for them to publish a final state
	// before the process exits.
	Inflight *concurrency.TimeoutGroup
}

// NewSchema parses schemaString and binds it to a fresh Resolver, the Go
// analogue of gql::schema() building a juniper::RootNode. maxConcurrentRuns
// caps how many driver+listener pairs CreateIndex may have in flight at
// once; 0 leaves it unbounded.
func NewSchema(st store.Store, settings *config.Settings, collab jobs.Collaborator, log *zap.SugaredLogger, maxConcurrentRuns int) (*graphql.Schema, *Resolver, error) {
	resolver := &Resolver{Store: st, Settings: settings, Collab: collab, Log: log, Inflight: concurrency.NewTimeoutGroup()}
	if maxConcurrentRuns > 0 {
		resolver.Runs = concurrency.NewLimitedWaitGroup(maxConcurrentRuns)
	}
	schema, err := graphql.ParseSchema(schemaString, resolver, graphql.UseFieldAliases())
	if err != nil {
		return nil, nil, ctlerr.Wrap(ctlerr.Misc, err, "could not parse graphql schema")
	}
	return schema, resolver, nil
}

// indexResolver adapts a store.Record to the Index GraphQL type.
type indexResolver struct{ rec store.Record }

func (r *indexResolver) IndexID() graphql.ID  { return graphql.ID(strconv.FormatInt(r.rec.IndexID, 10)) }
func (r *indexResolver) IndexType() string    { return r.rec.IndexType }
func (r *indexResolver) DataSource() string   { return r.rec.DataSource }
func (r *indexResolver) Region() string       { return r.rec.Region }
func (r *indexResolver) Status() string       { return r.rec.Status }
func (r *indexResolver) CreatedAt() string    { return r.rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00") }
func (r *indexResolver) UpdatedAt() string    { return r.rec.UpdatedAt.Format("2006-01-02T15:04:05Z07:00") }

type multiIndexesResolver struct {
	indexes []indexResolver
}

func (r *multiIndexesResolver) Indexes() []*indexResolver {
	out := make([]*indexResolver, len(r.indexes))
	for i := range r.indexes {
		out[i] = &r.indexes[i]
	}
	return out
}

func (r *multiIndexesResolver) IndexesCount() int32 { return int32(len(r.indexes)) }

type indexResponseResolver struct{ index indexResolver }

func (r *indexResponseResolver) Index() *indexResolver { return &r.index }

// Indexes implements the Query.indexes field (§4.7 "list all indexes").
func (r *Resolver) Indexes(ctx context.Context) (*multiIndexesResolver, error) {
	recs, err := r.Store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	resolved := make([]indexResolver, len(recs))
	for i, rec := range recs {
		resolved[i] = indexResolver{rec: rec}
	}
	return &multiIndexesResolver{indexes: resolved}, nil
}

type indexRequestArgs struct {
	Index struct {
		IndexType  string
		DataSource string
		Region     string
	}
}

// CreateIndex implements the Mutation.createIndex field (§4.7 "create a new
// index"): it persists the initial NotAvailable record synchronously, then
// spawns the driver+listener pair in the background (§5) so the mutation
// returns without waiting for the run — the caller follows progress through
// the notifications subscription or by polling indexes. When Runs is set and
// all of its slots are taken, the mutation first waits for a slot to free.
func (r *Resolver) CreateIndex(ctx context.Context, args indexRequestArgs) (*indexResponseResolver, error) {
	rec, err := r.Store.Create(ctx, args.Index.IndexType, args.Index.DataSource, args.Index.Region)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s:%d", r.Settings.Zmq.Host, r.Settings.Zmq.Port)
	topic := r.Settings.Zmq.Topic
	es := &url.URL{Scheme: "http", Host: fmt.Sprintf("%s:%d", r.Settings.Elasticsearch.Host, r.Settings.Elasticsearch.Port)}
	cfg := dispatch.Config{
		IndexType:      rec.IndexType,
		DataSource:     rec.DataSource,
		Region:         rec.Region,
		WorkingDir:     r.Settings.Work.WorkingDir,
		MimirsbrunnDir: r.Settings.Work.MimirsbrunnDir,
		CosmogonyDir:   r.Settings.Work.CosmogonyDir,
		Elasticsearch:  es,
	}

	r.Inflight.Add(1)
	runIndex := func() {
		defer r.Inflight.Done()
		if _, err := driver.RunIndex(context.Background(), rec, cfg, r.Collab, endpoint, topic, r.Store, r.Log); err != nil && r.Log != nil {
			r.Log.Errorw("index run failed", "index_id", rec.IndexID, "err", err)
		}
	}
	if r.Runs != nil {
		r.Runs.Go(runIndex)
	} else {
		go runIndex()
	}

	return &indexResponseResolver{index: indexResolver{rec: rec}}, nil
}

type indexStatusUpdateResolver struct {
	indexID int64
	status  string
}

func (r *indexStatusUpdateResolver) IndexID() graphql.ID { return graphql.ID(strconv.FormatInt(r.indexID, 10)) }
func (r *indexStatusUpdateResolver) Status() string      { return r.status }

// Notifications implements the Subscription.notifications field (§4.7,
// §6): every state published to the bus, across every index, forwarded to
// the GraphQL client. It subscribes directly rather than going through
// notify.Listener, which is scoped to one index_id and writes to the store
// instead of streaming out.
func (r *Resolver) Notifications(ctx context.Context) (<-chan *indexStatusUpdateResolver, error) {
	endpoint := fmt.Sprintf("%s:%d", r.Settings.Zmq.Host, r.Settings.Zmq.Port)
	nc, err := nats.Connect("nats://" + endpoint)
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.Bus, err, "could not connect notifications subscription to "+endpoint)
	}

	msgs := make(chan *nats.Msg, 64)
	sub, err := nc.ChanSubscribe(r.Settings.Zmq.Topic, msgs)
	if err != nil {
		nc.Close()
		return nil, ctlerr.Wrap(ctlerr.Bus, err, "could not subscribe to "+r.Settings.Zmq.Topic)
	}

	out := make(chan *indexStatusUpdateResolver)
	go func() {
		defer close(out)
		defer sub.Unsubscribe() //nolint:errcheck
		defer nc.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var env notify.Envelope
				if err := jsoniter.Unmarshal(msg.Data, &env); err != nil {
					if r.Log != nil {
						r.Log.Warnw("could not decode notification envelope, skipping", "err", err)
					}
					continue
				}
				select {
				case out <- &indexStatusUpdateResolver{indexID: env.IndexID, status: string(env.Status)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
