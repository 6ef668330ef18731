package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gekko3d/mosaic"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config (default $"+mosaic.ConfigEnv+")")
	debug := flag.Bool("debug", false, "enable debug logging")
	frames := flag.Uint64("frames", 0, "stop after this many frames, overrides app.max_frames")
	flag.Parse()

	if err := run(*configPath, *debug, *frames); err != nil {
		fmt.Fprintln(os.Stderr, "mosaic:", err)
		os.Exit(1)
	}
}

func run(configPath string, debug bool, frames uint64) error {
	if configPath == "" {
		configPath = os.Getenv(mosaic.ConfigEnv)
	}
	cfg, err := mosaic.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if debug {
		cfg.Log.Debug = true
	}
	if frames > 0 {
		cfg.App.MaxFrames = frames
	}

	logger := mosaic.NewDefaultLogger(cfg.Log.Prefix, cfg.Log.Debug)
	metrics := mosaic.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	bridge := mosaic.NewPhysicsBridge(cfg.Physics.BridgeConfig(), logger.Named("physics"), metrics)
	bridge.Start(ctx)
	defer bridge.Close()

	ratio := mosaic.ImageRatio(cfg.Scene.ImagePath, cfg.Scene.ImageRatio, logger)
	layout := mosaic.NewLayout(cfg.Scene, cfg.Scene.WindowWidth, cfg.Scene.WindowHeight, ratio)

	pacing := mosaic.NewPhysicsSync(bridge, cfg.Physics.TickInterval(), cfg.Physics.MaxBacklog, logger.Named("physics"), metrics)
	g.Go(func() error { return pacing.Run(ctx) })

	app := mosaic.NewAppBuilder().
		UseFrameRate(cfg.App.FrameRate).
		UseMaxFrames(cfg.App.MaxFrames).
		UseModule(
			mosaic.LoggingModule{Logger: logger},
			mosaic.TimeModule{},
			mosaic.SceneModule{Bridge: bridge, Layout: layout},
			mosaic.PhysicsModule{Bridge: bridge, Sync: pacing},
		).
		Build()

	g.Go(func() error {
		defer cancel()
		return app.Run(ctx)
	})

	if cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		serve(ctx, g, cfg.Metrics.Listen, mux, logger.Named("metrics"))
	}

	if cfg.DebugFeed.Listen != "" {
		feed := mosaic.NewDebugFeed(bridge, cfg.DebugFeed.Interval, logger.Named("debug"))
		mux := http.NewServeMux()
		mux.Handle("/world", feed)
		serve(ctx, g, cfg.DebugFeed.Listen, mux, logger.Named("debug"))
		g.Go(func() error { return feed.Run(ctx) })
	}

	if configPath != "" {
		watcher, err := mosaic.NewConfigWatcher(configPath, logger.Named("config"), func(c mosaic.Config) {
			mosaic.ApplyConfig(c, bridge, logger)
		})
		if err != nil {
			logger.Warnf("config: not watching %s: %v", configPath, err)
		} else {
			g.Go(func() error { return watcher.Run(ctx) })
		}
	}

	return g.Wait()
}

func serve(ctx context.Context, g *errgroup.Group, addr string, handler http.Handler, log mosaic.Logger) {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	g.Go(func() error {
		log.Infof("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
