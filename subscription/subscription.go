// Package subscription delivers live full-snapshot views of a remote
// collection. Writers publish a change notification per collection; each
// subscription refetches a bounded snapshot on every notification and hands
// it to its handler, so consumers always see whole-state updates rather than
// deltas.
package subscription

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"

	"plansync/storage"
)

// Source fetches one snapshot of a collection.
type Source interface {
	Query(ctx context.Context, collection string, predicate bson.D, limit int) ([]bson.Raw, error)
}

// Handler receives each decoded snapshot. It runs on the subscription's
// goroutine, off the caller's thread; deserialization of large snapshots
// therefore never blocks the consumer.
type Handler = func(docs []bson.Raw)

// Subscription is one live listener. Close cancels it and waits for the
// worker to exit.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Open starts a subscription on the collection's change channel. The first
// snapshot is fetched immediately; afterwards one snapshot is fetched per
// notification. A fetch failure is logged and skipped, the next notification
// tries again.
func Open(ctx context.Context, logger *log.Logger, rc *redis.Client, src Source, collection string, predicate bson.D, limit int, handler Handler) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{cancel: cancel, done: make(chan struct{})}
	go s.run(ctx, logger, rc, src, collection, predicate, limit, handler)
	return s
}

// Close revokes the subscription.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

func (s *Subscription) run(ctx context.Context, logger *log.Logger, rc *redis.Client, src Source, collection string, predicate bson.D, limit int, handler Handler) {
	defer close(s.done)

	fetch := func() {
		docs, err := src.Query(ctx, collection, predicate, limit)
		if err != nil {
			if ctx.Err() == nil {
				logger.WithError(err).WithField("collection", collection).Error("snapshot fetch failed")
			}
			return
		}
		handler(docs)
	}

	for {
		sub := rc.Subscribe(ctx, storage.ChannelFor(collection))
		if _, err := sub.Receive(ctx); err != nil {
			sub.Close()
			if ctx.Err() != nil {
				return
			}
			logger.WithError(err).WithField("collection", collection).Error("subscribe failed, retrying")
			select {
			case <-time.After(time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}

		fetch()

		ch := sub.Channel()
	receive:
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break receive
				}
				var note storage.ChangeNotification
				if err := sonic.Unmarshal([]byte(msg.Payload), &note); err != nil {
					logger.WithError(err).WithField("collection", collection).Error("unable to parse change notification")
					continue
				}
				fetch()
			}
		}
		sub.Close()
		if ctx.Err() != nil {
			return
		}
		logger.WithField("collection", collection).Error("pubsub channel closed, reconnecting")
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return
		}
	}
}

// Factory opens subscriptions with a shared redis client, source and page
// limit. It satisfies the store's snapshot source dependency.
type Factory struct {
	Redis  *redis.Client
	Source Source
	Logger *log.Logger
	Limit  int
}

// Subscribe opens a live subscription and returns its cancel function.
func (f *Factory) Subscribe(collection string, predicate bson.D, handler Handler) (cancel func()) {
	s := Open(context.Background(), f.Logger, f.Redis, f.Source, collection, predicate, f.Limit, handler)
	return s.Close
}
