package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	vibecheck "vibecheck/agents/vibe-check"
	"vibecheck/agents/vibe-check/api"
	"vibecheck/agents/vibe-check/youtube"
	"vibecheck/shared/ai"
	"vibecheck/shared/config"
	"vibecheck/shared/logger"
	"vibecheck/shared/monitoring"
	"vibecheck/shared/scheduler"
	"vibecheck/shared/storage"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "vibe-check",
		Short:         "Sentiment analysis for YouTube comment sections",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				return os.Setenv("CONFIG_FILE", configFile)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is config.yaml)")

	root.AddCommand(newServeCmd(), newAnalyzeCmd())
	return root
}

// app holds the wired pipeline shared by both commands.
type app struct {
	cfg          *config.Config
	store        storage.Store
	monitor      *monitoring.Monitor
	orchestrator *vibecheck.Orchestrator
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	store, err := storage.Open(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	client, err := youtube.NewClient(ctx, &cfg.YouTube)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create YouTube client: %w", err)
	}

	analyzer, err := ai.NewAnalyzer(ctx, &cfg.AI)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create sentiment analyzer: %w", err)
	}

	monitor := monitoring.NewMonitor()
	return &app{
		cfg:          cfg,
		store:        store,
		monitor:      monitor,
		orchestrator: vibecheck.NewOrchestrator(store, client, analyzer, monitor, cfg.YouTube.MaxComments),
	}, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.store.Close()

			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	if logger.ParseLevel(a.cfg.Logging.Level) > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:         net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port)),
		Handler:      api.NewRouter(a.orchestrator, a.monitor),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting HTTP server", "addr", srv.Addr, "storage", a.cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if a.cfg.Storage.TTL > 0 {
		sweeper := scheduler.New(a.cfg.Storage.SweepSchedule, storage.NewSweeper(a.store, a.cfg.Storage.TTL), a.monitor)
		g.Go(func() error {
			if err := sweeper.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

func newAnalyzeCmd() *cobra.Command {
	var (
		refresh bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <youtube-url>",
		Short: "Analyze a single video and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.store.Close()

			resp, err := a.orchestrator.AnalyzeVideo(ctx, args[0], vibecheck.Options{Refresh: refresh})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			printReport(out, resp)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "discard any stored analysis and recompute")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON response")
	return cmd
}
