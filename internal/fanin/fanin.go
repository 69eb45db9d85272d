// Package fanin implements the fan-in coordinator (C5): it owns the
// venue->latest-book cache, re-aggregates on every update, and forwards the
// finalized Summary to the broadcast hub. Grounded on
// original_source/src/proto/mod.rs's unbounded-mpsc-to-bounded-broadcast
// relay task and spec.md §4.5.
package fanin

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zenixls2/bookaggregator/internal/aggregator"
	"github.com/zenixls2/bookaggregator/internal/book"
	"github.com/zenixls2/bookaggregator/internal/broadcast"
	"github.com/zenixls2/bookaggregator/internal/ingester"
	"github.com/zenixls2/bookaggregator/internal/metrics"
)

// Coordinator receives (venue, book) tuples from every ingester over a
// buffered inbound channel that ingesters send on without dropping, and
// republishes a fresh aggregate to the bounded broadcast hub after each one.
type Coordinator struct {
	in    <-chan ingester.Update
	hub   *broadcast.Hub
	level int
	log   *zap.Logger

	cache map[string]*book.Orderbook

	metrics *metrics.Metrics
}

// SetMetrics attaches an optional metrics sink. m may be nil, in which case
// the coordinator records nothing.
func (c *Coordinator) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// New constructs a Coordinator. in must be unbounded (or large enough that
// ingesters never block on it) per spec.md §4.5's backpressure model.
func New(in <-chan ingester.Update, hub *broadcast.Hub, level int, log *zap.Logger) *Coordinator {
	return &Coordinator{
		in:    in,
		hub:   hub,
		level: level,
		log:   log.Named("fanin"),
		cache: make(map[string]*book.Orderbook),
	}
}

// Run drains the inbound channel until ctx is cancelled or the channel is
// closed (treated as a terminal error — spec.md §4.7 has the supervisor
// race this future against the RPC server's).
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-c.in:
			if !ok {
				return fmt.Errorf("fan-in: inbound channel closed")
			}
			c.handle(upd)
		}
	}
}

func (c *Coordinator) handle(upd ingester.Update) {
	start := time.Now()
	c.cache[upd.Venue] = upd.Book

	agg := aggregator.New()
	for _, ob := range c.cache {
		agg.Merge(ob)
	}
	summary, err := agg.Finalize(c.level)
	if c.metrics != nil {
		c.metrics.RecordProcessingLatency("merge_finalize", time.Since(start))
	}
	if err != nil {
		c.log.Warn("finalize failed", zap.Error(err), zap.String("venue", upd.Venue))
		c.hub.Publish(broadcast.Msg{Err: err})
		return
	}
	c.hub.Publish(broadcast.Msg{Summary: summary})
}
