// Package broadcast implements the bounded, single-producer multi-consumer
// fan-out stage (C6): each RPC subscriber gets its own bounded channel: slow
// consumers see a DeadlineExceeded on their next read rather than stalling
// the producer, and a closed hub ends every subscriber's stream cleanly.
// Grounded on the teacher's pkg/broadcaster/broadcaster.go register/
// unregister channel idiom and original_source/src/proto/mod.rs's
// BroadcastStream (RecvError::Lagged -> DeadlineExceeded, RecvError::Closed
// -> Aborted).
package broadcast

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/zenixls2/bookaggregator/internal/aggregator"
	"github.com/zenixls2/bookaggregator/internal/metrics"
)

// DefaultCapacity is the bounded per-subscriber buffer size spec.md §4.6
// calls for ("capacity ~20 messages").
const DefaultCapacity = 20

// Msg is what the fan-in coordinator publishes: either a finalized Summary,
// or a finalize error (decimal->f64 conversion failure) that must surface to
// subscribers as InvalidArgument without killing the producer.
type Msg struct {
	Summary aggregator.Summary
	Err     error
}

type subscriber struct {
	id     int64
	ch     chan Msg
	lagged int32 // atomic; set when a publish found ch full
}

// Hub owns the subscriber set and the single publish loop. It must be
// started with Run before Publish/Subscribe are used.
type Hub struct {
	logger   *zap.Logger
	capacity int

	registerCh   chan *subscriber
	unregisterCh chan int64
	publishCh    chan Msg
	closeCh      chan struct{}
	doneCh       chan struct{}

	nextID int64 // atomic

	metrics *metrics.Metrics
}

// SetMetrics attaches an optional metrics sink. m may be nil, in which case
// the hub records nothing (the default when no metrics_addr is configured).
// Must be called before Run starts the publish loop.
func (h *Hub) SetMetrics(m *metrics.Metrics) {
	h.metrics = m
}

// NewHub constructs a Hub with the given per-subscriber buffer capacity.
func NewHub(logger *zap.Logger, capacity int) *Hub {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Hub{
		logger:       logger.Named("broadcast"),
		capacity:     capacity,
		registerCh:   make(chan *subscriber),
		unregisterCh: make(chan int64),
		publishCh:    make(chan Msg),
		closeCh:      make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Run is the hub's single serializing loop; it must run in its own
// goroutine for the lifetime of the process (or until Close is called).
func (h *Hub) Run(ctx context.Context) {
	subs := make(map[int64]*subscriber)
	defer func() {
		for _, sub := range subs {
			close(sub.ch)
		}
		close(h.doneCh)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.closeCh:
			return
		case sub := <-h.registerCh:
			subs[sub.id] = sub
			h.logger.Debug("subscriber registered", zap.Int64("id", sub.id), zap.Int("total", len(subs)))
		case id := <-h.unregisterCh:
			if sub, ok := subs[id]; ok {
				close(sub.ch)
				delete(subs, id)
				h.logger.Debug("subscriber unregistered", zap.Int64("id", id), zap.Int("total", len(subs)))
			}
		case msg := <-h.publishCh:
			for _, sub := range subs {
				select {
				case sub.ch <- msg:
				default:
					atomic.StoreInt32(&sub.lagged, 1)
					h.logger.Warn("subscriber lagging, dropping message", zap.Int64("id", sub.id))
					if h.metrics != nil {
						h.metrics.RecordBroadcastLagged()
					}
				}
			}
		}
	}
}

// Close stops the hub's loop and closes every subscriber channel, which
// Subscription.Next surfaces as codes.Aborted — the clean end-of-stream
// signal for every currently-connected RPC client.
func (h *Hub) Close() {
	select {
	case <-h.doneCh:
		return
	default:
	}
	close(h.closeCh)
	<-h.doneCh
}

// Publish forwards one fan-in cycle's result to every current subscriber.
// It blocks until the hub's Run loop accepts it — the hub has exactly one
// producer (the fan-in coordinator), so this never contends.
func (h *Hub) Publish(msg Msg) {
	select {
	case h.publishCh <- msg:
	case <-h.doneCh:
	}
}

// Subscription is a single RPC subscriber's view of the broadcast.
type Subscription struct {
	hub *Hub
	sub *subscriber
}

// Subscribe registers a new subscriber and returns its handle. Callers must
// call Close when the RPC stream ends.
func (h *Hub) Subscribe() *Subscription {
	id := atomic.AddInt64(&h.nextID, 1)
	sub := &subscriber{id: id, ch: make(chan Msg, h.capacity)}
	select {
	case h.registerCh <- sub:
	case <-h.doneCh:
	}
	return &Subscription{hub: h, sub: sub}
}

// Close unregisters this subscription from the hub.
func (s *Subscription) Close() {
	select {
	case s.hub.unregisterCh <- s.sub.id:
	case <-s.hub.doneCh:
	}
}

// Next blocks until the next Summary, a lag/abort status, or ctx
// cancellation. A lagged subscriber receives exactly one DeadlineExceeded
// before resuming normal reads; a closed hub yields Aborted forever after.
func (s *Subscription) Next(ctx context.Context) (aggregator.Summary, error) {
	if atomic.CompareAndSwapInt32(&s.sub.lagged, 1, 0) {
		return aggregator.Summary{}, status.Error(codes.DeadlineExceeded, "subscriber lagged behind broadcast capacity")
	}
	select {
	case msg, ok := <-s.sub.ch:
		if !ok {
			return aggregator.Summary{}, status.Error(codes.Aborted, "broadcast closed")
		}
		if msg.Err != nil {
			return aggregator.Summary{}, status.Error(codes.InvalidArgument, msg.Err.Error())
		}
		return msg.Summary, nil
	case <-ctx.Done():
		return aggregator.Summary{}, ctx.Err()
	}
}
