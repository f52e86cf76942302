// Package notify implements the pub/sub narrow waist between the FSM
// driver and the status listener (§4.3-4.5, §9 "Pub/sub as the narrow
// waist"). The original rides ZeroMQ (async_zmq::publish/subscribe); no
// ZMQ binding is available anywhere in this corpus, so the same
// topic-addressed, fire-and-forget publish/subscribe semantics are carried
// over NATS core pub/sub instead.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package notify

import (
	"fmt"

	"github.com/nats-io/nats.go"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/crocme10/ctl2mimir/ctlerr"
	"github.com/crocme10/ctl2mimir/state"
)

// Envelope is the wire payload published per transition: the index id the
// message concerns plus the raw internally-tagged State JSON, the Go
// analogue of the three-frame (topic, id, state_json) multipart message
// described in §4.3/§6.
type Envelope struct {
	IndexID int64           `json:"index_id"`
	Status  jsoniter.RawMessage `json:"status"`
}

type Publisher interface {
	// Publish serializes state and sends (topic, index_id, state_json) to
	// subscribers. Delivery is best-effort: a late subscriber simply
	// misses messages sent before it connected (§4.3).
	Publish(indexID int64, s state.State) error
	// Close tears down the publish endpoint. Pending subscribers observe
	// no more messages; this is the NATS analogue of closing the ZMQ
	// publish socket so subscribers see EOF (§5 "Cancellation & timeouts").
	Close() error
}

type natsPublisher struct {
	nc    *nats.Conn
	topic string
	log   *zap.SugaredLogger
}

// NewPublisher dials endpoint (host:port) and binds the publisher to topic.
// One publisher is created per FSM driver (§5 "Shared resources").
func NewPublisher(endpoint, topic string, log *zap.SugaredLogger) (Publisher, error) {
	nc, err := nats.Connect(fmt.Sprintf("nats://%s", endpoint))
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.Bus, err, "could not connect publisher to "+endpoint)
	}
	return &natsPublisher{nc: nc, topic: topic, log: log}, nil
}

func (p *natsPublisher) Publish(indexID int64, s state.State) error {
	body, err := state.Marshal(s)
	if err != nil {
		return ctlerr.Wrap(ctlerr.Serialization, err, "could not serialize state for publication")
	}
	env := Envelope{IndexID: indexID, Status: jsoniter.RawMessage(body)}
	payload, err := jsoniter.Marshal(env)
	if err != nil {
		return ctlerr.Wrap(ctlerr.Serialization, err, "could not serialize envelope")
	}
	if err := p.nc.Publish(p.topic, payload); err != nil {
		return ctlerr.Wrap(ctlerr.Bus, err, "could not publish state")
	}
	if p.log != nil {
		p.log.Infow("published state", "index_id", indexID, "type", s.Type, "topic", p.topic)
	}
	return nil
}

func (p *natsPublisher) Close() error {
	p.nc.Close()
	return nil
}
