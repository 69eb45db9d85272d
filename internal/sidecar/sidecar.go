// Package sidecar optionally republishes every finalized Summary to Redis
// pub/sub for external dashboards, gated by Config.RedisPublish.Enabled.
// Adapted from the teacher's pkg/redis.Client (connect-with-ping,
// Publish-to-channel) and internal/publisher/redis.go's fire-and-forget
// publish loop; trimmed to the one call this system needs (Publish) since
// the aggregator has no use for the teacher's stream/key-value surface
// (XAdd/XRead/Set/Get) — those exist to support the teacher's own
// analytics persistence, which has no analog here.
package sidecar

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zenixls2/bookaggregator/internal/broadcast"
	"github.com/zenixls2/bookaggregator/internal/config"
	"github.com/zenixls2/bookaggregator/internal/metrics"
)

// Publisher re-publishes broadcast Summaries to a single Redis channel.
type Publisher struct {
	rdb     *redis.Client
	channel string
	log     *zap.Logger
	metrics *metrics.Metrics
}

// New connects to addr and verifies reachability with a Ping, mirroring the
// teacher's pkg/redis.NewClient connect-then-ping sequence.
func New(cfg config.RedisPublishConfig, log *zap.Logger, m *metrics.Metrics) (*Publisher, error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}

	log.Info("redis sidecar connected", zap.String("addr", cfg.Addr), zap.String("channel", cfg.Channel))
	return &Publisher{rdb: rdb, channel: cfg.Channel, log: log, metrics: m}, nil
}

// Run subscribes to hub and publishes every Summary to Redis, best-effort:
// a publish failure is logged and counted but never stops the loop, since a
// downstream dashboard outage must not affect the primary RPC fan-out.
func (p *Publisher) Run(ctx context.Context, hub *broadcast.Hub) error {
	sub := hub.Subscribe()
	defer sub.Close()

	for {
		summary, err := sub.Next(ctx)
		if err != nil {
			return fmt.Errorf("redis sidecar subscription ended: %w", err)
		}

		data, err := json.Marshal(summary)
		if err != nil {
			p.log.Error("failed to marshal summary for redis", zap.Error(err))
			p.recordResult("marshal_error")
			continue
		}

		if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
			p.log.Warn("failed to publish summary to redis", zap.Error(err), zap.String("channel", p.channel))
			p.recordResult("publish_error")
			continue
		}
		p.recordResult("ok")
	}
}

func (p *Publisher) recordResult(status string) {
	if p.metrics != nil {
		p.metrics.RecordRedisOperation(status)
	}
}

// Close releases the underlying Redis connection.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
