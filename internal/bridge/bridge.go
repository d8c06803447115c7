// Package bridge funnels push notifications of externally started add-items
// operations into the engine through the same merge path as a direct fetch.
package bridge

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/mmcdole/kondo/internal/domain"
	"github.com/mmcdole/kondo/internal/engine"
	"github.com/mmcdole/kondo/internal/identity"
	"github.com/mmcdole/kondo/internal/loading"
	"github.com/mmcdole/kondo/internal/metrics"
	"github.com/mmcdole/kondo/internal/notify"
)

// Subscriber is the consuming side of the notification channel.
type Subscriber interface {
	Subscribe(buffer int, topics ...notify.Topic) (<-chan notify.Notification, func())
}

// Merger accepts batches for the canonical collection.
type Merger interface {
	MergeBatch(ctx context.Context, incoming engine.BatchValue) (engine.State, error)
}

// Bridge subscribes to the add-items topics and merges every phase.
//
// Phases of one operation are handled strictly in arrival order. Different
// operations are handled concurrently.
type Bridge struct {
	sub      Subscriber
	merger   Merger
	assigner *identity.Assigner
	logger   *slog.Logger
	recorder metrics.Recorder
	buffer   int
}

// New creates a bridge. A nil assigner uses the default digest.
func New(sub Subscriber, merger Merger, assigner *identity.Assigner, logger *slog.Logger, recorder metrics.Recorder) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if assigner == nil {
		assigner = identity.NewAssigner(nil, 0)
	}
	return &Bridge{
		sub:      sub,
		merger:   merger,
		assigner: assigner,
		logger:   logger,
		recorder: metrics.OrNoop(recorder),
		buffer:   16,
	}
}

type finished struct {
	op   uuid.UUID
	done chan struct{}
}

// Run consumes notifications until ctx is done or the channel closes. It
// returns after every accepted notification has been merged.
func (b *Bridge) Run(ctx context.Context) error {
	ch, unsubscribe := b.sub.Subscribe(b.buffer, notify.AddItemsTopics...)
	defer unsubscribe()

	var wg sync.WaitGroup
	defer wg.Wait()

	// tails holds, per operation, the completion of its latest handler.
	tails := make(map[uuid.UUID]chan struct{})
	completed := make(chan finished)

	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-completed:
			if tails[f.op] == f.done {
				delete(tails, f.op)
			}
		case n, ok := <-ch:
			if !ok {
				return nil
			}
			b.recorder.IncNotification(string(n.Topic))

			prev := tails[n.Operation]
			done := make(chan struct{})
			tails[n.Operation] = done

			wg.Add(1)
			go func() {
				defer wg.Done()
				if prev != nil {
					<-prev
				}
				b.handle(context.WithoutCancel(ctx), n)
				close(done)
				select {
				case completed <- finished{op: n.Operation, done: done}:
				case <-ctx.Done():
				}
			}()
		}
	}
}

func (b *Bridge) handle(ctx context.Context, n notify.Notification) {
	logger := b.logger.With("topic", n.Topic, "operation", n.Operation)

	var batch engine.BatchValue
	switch n.Topic {
	case notify.TopicAddItemsPending:
		batch = loading.Pending[domain.Batch, error]()
	case notify.TopicAddItemsFulfilled:
		batch = b.fulfilled(ctx, n)
	case notify.TopicAddItemsRejected:
		batch = rejected(n)
	default:
		logger.Warn("ignoring notification for unknown topic")
		return
	}

	if err, ok := batch.Err(); ok {
		logger.Warn("add items rejected", "error", err)
	}
	if _, err := b.merger.MergeBatch(ctx, batch); err != nil {
		logger.Error("merging notification", "error", err)
		return
	}
	logger.Debug("notification merged", "phase", batch.Status().String())
}

func (b *Bridge) fulfilled(ctx context.Context, n notify.Notification) engine.BatchValue {
	var result domain.DiscoverResult
	if err := n.Decode(&result); err != nil {
		return loading.Rejected[domain.Batch](error(domain.InvalidPayload(string(n.Topic), err)))
	}
	projects, err := identity.Projects(ctx, b.assigner, result.Projects)
	if err != nil {
		return loading.Rejected[domain.Batch](err)
	}
	return loading.Fulfilled[domain.Batch, error](domain.Batch{
		Projects:    projects,
		SearchPaths: result.SearchPaths,
	})
}

func rejected(n notify.Notification) engine.BatchValue {
	var msg string
	if err := n.Decode(&msg); err != nil {
		return loading.Rejected[domain.Batch](error(domain.InvalidPayload(string(n.Topic), err)))
	}
	return loading.Rejected[domain.Batch](error(domain.AddItemsFailed(msg)))
}
