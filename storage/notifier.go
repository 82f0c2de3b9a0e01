package storage

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// ChangeNotification is the payload published after a successful write.
// Subscribers refetch a full snapshot on receipt, so the payload stays small.
type ChangeNotification struct {
	Collection string `json:"collection"`
	At         int64  `json:"at"`
}

// ChannelFor returns the pub/sub channel carrying changes for a collection.
func ChannelFor(collection string) string {
	return "changes:" + collection
}

// Notifier publishes change notifications over redis. Delivery is best
// effort: a failed publish is retried with backoff and eventually dropped,
// which only delays the next snapshot refresh.
type Notifier struct {
	rc           *redis.Client
	logger       *log.Logger
	maxAttempts  int
	retryInitial time.Duration
	retryMax     time.Duration
	retryWG      sync.WaitGroup
}

// NewNotifier creates a Notifier with default retry settings.
func NewNotifier(rc *redis.Client, logger *log.Logger) *Notifier {
	return &Notifier{
		rc:           rc,
		logger:       logger,
		maxAttempts:  5,
		retryInitial: 250 * time.Millisecond,
		retryMax:     30 * time.Second,
	}
}

// Changed announces that a collection changed. Safe on a nil receiver.
func (n *Notifier) Changed(ctx context.Context, collection string) {
	if n == nil || n.rc == nil {
		return
	}
	note := ChangeNotification{Collection: collection, At: time.Now().UnixMilli()}
	payload, err := sonic.Marshal(note)
	if err != nil {
		n.logger.WithError(err).WithField("collection", collection).Error("encode change notification")
		return
	}
	if err := n.rc.Publish(ctx, ChannelFor(collection), payload).Err(); err != nil {
		n.logger.WithError(err).WithField("collection", collection).Warn("publish change notification failed, scheduling retry")
		n.scheduleRetry(collection, payload, 1)
	}
}

// Flush blocks until all pending retries have finished.
func (n *Notifier) Flush() {
	if n == nil {
		return
	}
	n.retryWG.Wait()
}

func (n *Notifier) scheduleRetry(collection string, payload []byte, attempt int) {
	if attempt >= n.maxAttempts {
		n.logger.WithFields(log.Fields{"collection": collection, "attempts": attempt}).Error("dropping change notification")
		return
	}
	n.retryWG.Add(1)
	go func() {
		defer n.retryWG.Done()
		time.Sleep(backoffDelay(attempt, n.retryInitial, n.retryMax))
		if err := n.rc.Publish(context.Background(), ChannelFor(collection), payload).Err(); err != nil {
			n.logger.WithError(err).WithFields(log.Fields{"collection": collection, "attempt": attempt}).Warn("change notification retry failed")
			n.scheduleRetry(collection, payload, attempt+1)
		}
	}()
}

func backoffDelay(attempt int, initial, max time.Duration) time.Duration {
	if initial <= 0 {
		initial = time.Second
	}
	if max <= 0 {
		max = 10 * time.Second
	}
	backoff := float64(initial) * math.Pow(2, float64(attempt-1))
	if backoff > float64(max) {
		backoff = float64(max)
	}
	jitter := 0.2 * backoff
	return time.Duration(backoff + (rand.Float64()-0.5)*2*jitter)
}
