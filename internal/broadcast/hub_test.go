package broadcast

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/zenixls2/bookaggregator/internal/aggregator"
)

func startHub(t *testing.T, capacity int) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(zap.NewNop(), capacity)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	return hub, cancel
}

func TestSubscriberReceivesPublishedSummaries(t *testing.T) {
	hub, cancel := startHub(t, DefaultCapacity)
	defer cancel()

	sub := hub.Subscribe()
	defer sub.Close()

	want := aggregator.Summary{Spread: 1.5}
	hub.Publish(Msg{Summary: want})

	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()
	got, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Spread != want.Spread {
		t.Fatalf("got spread %v, want %v", got.Spread, want.Spread)
	}
}

func TestLaggedSubscriberSeesDeadlineExceededOnce(t *testing.T) {
	hub, cancel := startHub(t, 1)
	defer cancel()

	sub := hub.Subscribe()
	defer sub.Close()

	// Fill the one-slot buffer, then publish a second message that the
	// hub must drop for this subscriber while marking it lagged.
	hub.Publish(Msg{Summary: aggregator.Summary{Spread: 1}})
	time.Sleep(20 * time.Millisecond) // let the hub loop deliver the first publish
	hub.Publish(Msg{Summary: aggregator.Summary{Spread: 2}})
	time.Sleep(20 * time.Millisecond)

	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()

	// First read surfaces the lag as DeadlineExceeded exactly once.
	_, err := sub.Next(ctx)
	if status.Code(err) != codes.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}

	// Second read: the message buffered before the lag was detected.
	first, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("unexpected error on the read after the lag: %v", err)
	}
	if first.Spread != 1 {
		t.Fatalf("expected the buffered spread 1, got %v", first.Spread)
	}

	// The stream continues normally afterward.
	hub.Publish(Msg{Summary: aggregator.Summary{Spread: 3}})
	third, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("unexpected error after lag cleared: %v", err)
	}
	if third.Spread != 3 {
		t.Fatalf("expected spread 3 after recovery, got %v", third.Spread)
	}
}

func TestClosedHubSurfacesAborted(t *testing.T) {
	hub, cancel := startHub(t, DefaultCapacity)
	defer cancel()

	sub := hub.Subscribe()
	hub.Close()

	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()
	_, err := sub.Next(ctx)
	if status.Code(err) != codes.Aborted {
		t.Fatalf("expected Aborted after hub close, got %v", err)
	}
}

func TestFinalizeErrorSurfacesAsInvalidArgument(t *testing.T) {
	hub, cancel := startHub(t, DefaultCapacity)
	defer cancel()

	sub := hub.Subscribe()
	defer sub.Close()

	hub.Publish(Msg{Err: fmt.Errorf("price conversion error")})

	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()
	_, err := sub.Next(ctx)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestOtherSubscribersUnaffectedByOneLagging(t *testing.T) {
	hub, cancel := startHub(t, 1)
	defer cancel()

	slow := hub.Subscribe()
	defer slow.Close()
	fast := hub.Subscribe()
	defer fast.Close()

	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()

	hub.Publish(Msg{Summary: aggregator.Summary{Spread: 1}})
	time.Sleep(20 * time.Millisecond)

	// fast drains its buffer right away, freeing its one slot; slow does
	// not read, so its buffer stays full.
	first, err := fast.Next(ctx)
	if err != nil {
		t.Fatalf("fast first read: %v", err)
	}
	if first.Spread != 1 {
		t.Fatalf("expected fast's first read to be spread 1, got %v", first.Spread)
	}

	hub.Publish(Msg{Summary: aggregator.Summary{Spread: 2}})
	time.Sleep(20 * time.Millisecond)

	// slow's buffer was still full from the first publish: it lags, and the
	// lag is reported before its buffered message.
	if _, err := slow.Next(ctx); status.Code(err) != codes.DeadlineExceeded {
		t.Fatalf("expected slow subscriber to observe lag, got %v", err)
	}
	if _, err := slow.Next(ctx); err != nil {
		t.Fatalf("slow buffered read: %v", err)
	}

	// fast had room for the second publish and is unaffected by slow's lag.
	second, err := fast.Next(ctx)
	if err != nil {
		t.Fatalf("fast second read: %v", err)
	}
	if second.Spread != 2 {
		t.Fatalf("expected fast's second read to be spread 2, got %v", second.Spread)
	}
}
