// Package rpcserver implements the BookSummary gRPC service: each incoming
// stream subscribes to internal/broadcast.Hub and forwards every published
// Summary until the client disconnects or the hub closes. Grounded on
// original_source/src/proto/mod.rs's AggServer/BroadcastStream (one
// broadcast receiver per RPC call, status codes derived from the receiver's
// terminal condition) and the teacher's cmd/main.go server-lifecycle style
// (construct, Serve, log on exit).
package rpcserver

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/zenixls2/bookaggregator/internal/broadcast"
	"github.com/zenixls2/bookaggregator/internal/metrics"
	"github.com/zenixls2/bookaggregator/internal/rpc"
)

// Server implements rpc.OrderbookAggregatorServer over a broadcast.Hub.
type Server struct {
	hub     *broadcast.Hub
	log     *zap.Logger
	metrics *metrics.Metrics

	grpcServer *grpc.Server
}

// New returns a Server streaming summaries from hub. metrics may be nil.
func New(hub *broadcast.Hub, log *zap.Logger, m *metrics.Metrics) *Server {
	return &Server{hub: hub, log: log, metrics: m}
}

// BookSummary implements rpc.OrderbookAggregatorServer: it subscribes to the
// hub and forwards every message until the client disconnects (stream.Send
// erroring or the stream context ending) or Subscription.Next returns a
// terminal status.
func (s *Server) BookSummary(_ *rpc.Empty, stream rpc.OrderbookAggregator_BookSummaryServer) error {
	sub := s.hub.Subscribe()
	defer sub.Close()

	if s.metrics != nil {
		s.metrics.IncBroadcastSubscribers()
		defer s.metrics.DecBroadcastSubscribers()
	}

	ctx := stream.Context()
	s.log.Debug("rpc subscriber connected")
	for {
		summary, err := sub.Next(ctx)
		if err != nil {
			s.log.Debug("rpc subscriber ending", zap.Error(err))
			return err
		}

		out := &rpc.Summary{Spread: summary.Spread}
		for _, lv := range summary.Bids {
			out.Bids = append(out.Bids, rpc.Level{Exchange: lv.Exchange, Price: lv.Price, Amount: lv.Amount})
		}
		for _, lv := range summary.Asks {
			out.Asks = append(out.Asks, rpc.Level{Exchange: lv.Exchange, Price: lv.Price, Amount: lv.Amount})
		}
		if err := stream.Send(out); err != nil {
			return err
		}
	}
}

// Serve listens on addr and blocks until ctx is cancelled or Serve errors,
// satisfying supervisor.WorkerFunc.
func (s *Server) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("rpc listen on %s: %w", addr, err)
	}

	s.grpcServer = grpc.NewServer()
	rpc.RegisterOrderbookAggregatorServer(s.grpcServer, s)

	errCh := make(chan error, 1)
	go func() { errCh <- s.grpcServer.Serve(lis) }()

	s.log.Info("rpc server listening", zap.String("addr", addr))
	select {
	case <-ctx.Done():
		s.grpcServer.GracefulStop()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
