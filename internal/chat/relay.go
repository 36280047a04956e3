package chat

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// relayChannel is the Redis pub/sub channel shared by all instances.
const relayChannel = "pairchat-events"

// Relay carries targeted events between server instances over Redis
// pub/sub. An event that misses the local registry is published here;
// every instance subscribes and attempts local delivery for targets
// it holds. Events that miss everywhere are still dropped — the relay
// is delivery plumbing, not a queue.
type Relay struct {
	rdb        *redis.Client
	router     *Router
	instanceID string
	log        *zap.Logger
}

type relayEnvelope struct {
	Origin string `json:"origin"`
	Target int64  `json:"target"`
	Event  Event  `json:"event"`
}

func NewRelay(rdb *redis.Client, router *Router, log *zap.Logger) *Relay {
	return &Relay{
		rdb:        rdb,
		router:     router,
		instanceID: uuid.NewString(),
		log:        log,
	}
}

// Publish hands an undeliverable event to peer instances.
func (r *Relay) Publish(ctx context.Context, targetID int64, evt Event) {
	payload, err := json.Marshal(relayEnvelope{
		Origin: r.instanceID,
		Target: targetID,
		Event:  evt,
	})
	if err != nil {
		r.log.Error("encode relay envelope", zap.Error(err))
		return
	}
	if err := r.rdb.Publish(ctx, relayChannel, payload).Err(); err != nil {
		r.log.Error("relay publish", zap.Error(err))
	}
}

// Run subscribes to the relay channel and attempts local delivery for
// every envelope published by a peer instance. Blocks until ctx is
// cancelled; run it in its own goroutine.
func (r *Relay) Run(ctx context.Context) {
	pubsub := r.rdb.Subscribe(ctx, relayChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env relayEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.log.Error("decode relay envelope", zap.Error(err))
				continue
			}
			if env.Origin == r.instanceID {
				continue
			}
			if r.router.Deliver(env.Target, env.Event) {
				r.log.Debug("relayed event delivered",
					zap.Int64("user", env.Target), zap.String("event", env.Event.Name))
			}
		}
	}
}
