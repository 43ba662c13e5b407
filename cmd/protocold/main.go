// Protocold is the adaptive protocol selection daemon.
//
// It registers behavior protocols from a manifest, selects among them with a
// self-tuning bandit controller, learns from feedback scores, and runs
// periodic self-improvement and evolution cycles. The HTTP API exposes
// selection, feedback, and administration.
//
// Usage:
//
//	# Start with defaults
//	protocold
//
//	# Custom config file
//	protocold -config /etc/protocold/config.yaml
//
//	# Configure via environment
//	PROTOCOLD_SERVER_PORT=9000 protocold
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/protocold/internal/bandit"
	"github.com/fyrsmithlabs/protocold/internal/config"
	"github.com/fyrsmithlabs/protocold/internal/episodic"
	"github.com/fyrsmithlabs/protocold/internal/evolution"
	httpserver "github.com/fyrsmithlabs/protocold/internal/http"
	"github.com/fyrsmithlabs/protocold/internal/improver"
	"github.com/fyrsmithlabs/protocold/internal/logging"
	"github.com/fyrsmithlabs/protocold/internal/manifest"
	"github.com/fyrsmithlabs/protocold/internal/registry"
	"github.com/fyrsmithlabs/protocold/internal/reward"
	"github.com/fyrsmithlabs/protocold/internal/selector"
	"github.com/fyrsmithlabs/protocold/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  protocold            Start the daemon\n")
			fmt.Fprintf(os.Stderr, "  protocold version    Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("protocold by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires every component and blocks until the context is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logging.Sync(logger) }()

	logger.Info("starting protocold",
		zap.String("version", version),
		zap.String("commit", gitCommit),
	)

	tel, err := telemetry.New(ctx, telemetry.Options{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		Protocol:    cfg.Telemetry.Protocol,
		ServiceName: cfg.Telemetry.ServiceName,
		Insecure:    cfg.Telemetry.Insecure,
		Interval:    cfg.Telemetry.Interval,
		Version:     version,
	}, logger)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	// The bandit's source is serialized by the controller's mutex; the
	// evolver runs on scheduler and API goroutines, so it gets its own.
	var banditRNG, evolverRNG *rand.Rand
	if cfg.Bandit.Seed != 0 {
		banditRNG = rand.New(rand.NewSource(cfg.Bandit.Seed))
		evolverRNG = rand.New(rand.NewSource(cfg.Bandit.Seed + 1))
	}

	reg := registry.New(logger)

	banditOpts := []bandit.AdaptiveOption{
		bandit.WithWindow(cfg.Bandit.Window),
		bandit.WithMetrics(bandit.NewMetrics(logger)),
	}
	if cfg.Bandit.Active != "" {
		banditOpts = append(banditOpts, bandit.WithActiveStrategy(cfg.Bandit.Active))
	}
	adaptive := bandit.NewAdaptive([]bandit.Strategy{
		bandit.NewEpsilonGreedy(*cfg.Bandit.Epsilon, banditRNG),
		bandit.NewUCB1(cfg.Bandit.UCBC),
		bandit.NewThompson(bandit.DefaultAlphaPrior, bandit.DefaultBetaPrior, banditRNG),
		bandit.NewLinear(bandit.DefaultLearningRate),
	}, logger, banditOpts...)

	sink, err := episodic.New(episodic.Options{
		Kind:       cfg.Episodic.Sink,
		Path:       cfg.Episodic.Path,
		Collection: cfg.Episodic.Collection,
		Compress:   cfg.Episodic.Compress,
		URL:        cfg.Episodic.URL,
		Subject:    cfg.Episodic.Subject,
	}, episodic.Deps{Logger: logger})
	if err != nil {
		return fmt.Errorf("creating episodic sink: %w", err)
	}

	svc, err := selector.New(selector.Options{
		Registry: reg,
		Bandit:   adaptive,
		Rewards:  reward.NewModel(cfg.Reward.Alpha, logger),
		Improver: improver.New(reg, logger),
		Evolver:  evolution.NewEvolver(cfg.Evolution.Threshold, cfg.Evolution.Noise, evolverRNG, logger),
		Sink:     sink,
		Logger:   logger,
		Metrics:  selector.NewMetrics(logger),
	})
	if err != nil {
		return fmt.Errorf("creating selector service: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("selector service close failed", zap.Error(err))
		}
	}()

	if cfg.Manifest.Path != "" {
		mgr := manifest.NewManager(reg, logger)
		if cfg.Manifest.Watch {
			watcher, err := manifest.NewWatcher(cfg.Manifest.Path, mgr, logger)
			if err != nil {
				return fmt.Errorf("creating manifest watcher: %w", err)
			}
			if err := watcher.Start(); err != nil {
				return fmt.Errorf("starting manifest watcher: %w", err)
			}
			defer watcher.Stop()
		} else if err := mgr.ApplyFile(cfg.Manifest.Path); err != nil {
			return fmt.Errorf("loading manifest: %w", err)
		}
	}

	if cfg.Improver.Enabled {
		scheduler, err := improver.NewScheduler(svc, logger,
			improver.WithInterval(cfg.Improver.Interval),
			improver.WithEvolveEvery(*cfg.Improver.EvolveEvery),
		)
		if err != nil {
			return fmt.Errorf("creating cycle scheduler: %w", err)
		}
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("starting cycle scheduler: %w", err)
		}
		defer scheduler.Stop()
	}

	server, err := httpserver.NewServer(svc, logger, &httpserver.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
