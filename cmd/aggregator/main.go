// Command aggregator is the real-time order-book aggregator process:
// it loads configuration, spawns one ingester per configured venue, merges
// their books through the fan-in coordinator, fans the result out to
// gRPC BookSummary subscribers, and exits on the first terminal failure of
// the RPC server or the fan-in loop.
//
// Structured after the teacher's cmd/main.go application-struct shape
// (initialize/start/waitForShutdown/shutdown), generalized from a
// WebSocket broadcaster to this system's ingester/fan-in/RPC pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/zenixls2/bookaggregator/internal/broadcast"
	"github.com/zenixls2/bookaggregator/internal/config"
	"github.com/zenixls2/bookaggregator/internal/fanin"
	"github.com/zenixls2/bookaggregator/internal/ingester"
	"github.com/zenixls2/bookaggregator/internal/logging"
	"github.com/zenixls2/bookaggregator/internal/metrics"
	"github.com/zenixls2/bookaggregator/internal/rpcserver"
	"github.com/zenixls2/bookaggregator/internal/sidecar"
	"github.com/zenixls2/bookaggregator/internal/supervisor"
	"github.com/zenixls2/bookaggregator/internal/venues"
)

const version = "0.1.0"

// app bundles every long-lived component, the same grouping the teacher's
// P9MicroStream struct uses for its broadcaster/supervisor/logger.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	sup    *supervisor.Supervisor
	hub    *broadcast.Hub
	rpc    *rpcserver.Server
	mtr    *metrics.Metrics
	side   *sidecar.Publisher

	ctx       context.Context
	cancel    context.CancelFunc
	startedAt time.Time
}

// runUptimeLoop periodically updates the bookagg_service_uptime_seconds gauge until
// ctx is cancelled. Only started when metrics are enabled.
func (a *app) runUptimeLoop() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.mtr.SetServiceUptime(time.Since(a.startedAt))
		}
	}
}

func main() {
	configPath := flag.String("config-path", config.DefaultConfigPath, "path to the YAML configuration file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("bookaggregator " + version)
		return
	}

	a := &app{}
	if err := a.initialize(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}

	if err := a.start(); err != nil {
		a.logger.Error("failed to start", zap.Error(err))
		os.Exit(1)
	}

	err := a.waitForShutdownOrFailure()
	a.shutdown()
	if err != nil {
		a.logger.Error("terminated with error", zap.Error(err))
		os.Exit(1)
	}
	a.logger.Info("stopped gracefully")
}

func (a *app) initialize(configPath string) error {
	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.startedAt = time.Now()

	loader := config.NewConfigLoader()
	cfg, err := loader.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	logger, err := logging.New(cfg)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	a.logger = logger
	a.logger.Info("configuration loaded", zap.Int("venues", len(cfg.ExchangePairMap)))

	if cfg.MetricsAddr != "" {
		a.mtr = metrics.New()
	}

	a.hub = broadcast.NewHub(a.logger, broadcast.DefaultCapacity)
	a.hub.SetMetrics(a.mtr)
	a.rpc = rpcserver.New(a.hub, a.logger, a.mtr)

	if cfg.RedisPublish.Enabled {
		pub, err := sidecar.New(cfg.RedisPublish, a.logger, a.mtr)
		if err != nil {
			return fmt.Errorf("setup redis sidecar: %w", err)
		}
		a.side = pub
	}

	a.sup = supervisor.New(a.ctx, a.logger)
	return nil
}

func (a *app) start() error {
	go a.hub.Run(a.ctx)

	if a.mtr != nil {
		if err := a.mtr.Start(a.cfg.MetricsAddr); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
	}

	// Buffered only to absorb bursts across venues; every ingester sends with
	// a blocking select (see ingester.dispatch), so this channel never drops
	// an update — spec.md §4.5 puts the only lossy point downstream, in the
	// bounded broadcast hub (§4.6).
	updates := make(chan ingester.Update, 256)
	if err := a.registerIngesters(updates); err != nil {
		return err
	}

	coord := fanin.New(updates, a.hub, config.DefaultDepthLevel, a.logger)
	coord.SetMetrics(a.mtr)
	if err := a.sup.AddWorker(supervisor.WorkerConfig{Name: "fanin", MaxRetries: 1}, coord.Run); err != nil {
		return err
	}

	if a.mtr != nil {
		go a.runUptimeLoop()
	}

	bindAddr := fmt.Sprintf("%s:%d", a.cfg.BindAddr, a.cfg.ServerPort)
	if err := a.sup.AddWorker(supervisor.WorkerConfig{Name: "rpcserver", MaxRetries: 1}, func(ctx context.Context) error {
		return a.rpc.Serve(ctx, bindAddr)
	}); err != nil {
		return err
	}

	if a.side != nil {
		if err := a.sup.AddWorker(supervisor.WorkerConfig{Name: "redis-sidecar", MaxRetries: 0}, func(ctx context.Context) error {
			return a.side.Run(ctx, a.hub)
		}); err != nil {
			return err
		}
	}

	return a.sup.Start()
}

// registerIngesters adds one supervised worker per configured venue, each
// running venues.Default's spec for that name against its configured pairs.
func (a *app) registerIngesters(updates chan<- ingester.Update) error {
	for venue, pairs := range a.cfg.ExchangePairMap {
		spec, err := venues.Default.Lookup(venue)
		if err != nil {
			return fmt.Errorf("registering ingesters: %w", err)
		}

		ingPairs := make([]ingester.PairConfig, 0, len(pairs))
		for _, p := range pairs {
			ingPairs = append(ingPairs, ingester.PairConfig{
				Pair:     p.Pair,
				WSAPI:    p.ResolvedWSAPI(),
				WaitSecs: p.ResolvedWaitSecs(),
			})
		}

		ing := ingester.New(venue, spec, ingPairs, config.DefaultDepthLevel, updates, a.logger)
		ing.SetMetrics(a.mtr)
		err = a.sup.AddWorker(supervisor.WorkerConfig{
			Name:       "ingester-" + venue,
			Exchange:   venue,
			MaxRetries: 0,
		}, ing.Run)
		if err != nil {
			return fmt.Errorf("registering ingester %s: %w", venue, err)
		}
	}
	return nil
}

// waitForShutdownOrFailure blocks until SIGINT/SIGTERM or a supervised
// worker reports a terminal failure, per spec.md §4.7's "races their
// lifetimes" requirement.
func (a *app) waitForShutdownOrFailure() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		return nil
	case err := <-a.sup.Failures():
		return err
	}
}

func (a *app) shutdown() {
	a.cancel()
	if a.sup != nil {
		a.sup.Stop()
	}
	if a.mtr != nil {
		a.mtr.Stop()
	}
	if a.side != nil {
		a.side.Close()
	}
	a.hub.Close()
	a.logger.Sync()
}
