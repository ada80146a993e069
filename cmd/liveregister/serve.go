package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gabrielmiguelok/liveregister/client"
	"github.com/gabrielmiguelok/liveregister/internal/config"
	"github.com/gabrielmiguelok/liveregister/internal/registration"
	"github.com/gabrielmiguelok/liveregister/pkg/health"
	"github.com/gabrielmiguelok/liveregister/pkg/logging"
	"github.com/gabrielmiguelok/liveregister/pkg/router"
	"github.com/gabrielmiguelok/liveregister/pkg/security"
	"github.com/gabrielmiguelok/liveregister/pkg/shutdown"
)

type serveOptions struct {
	configPath string
	addr       string
	codec      string
	debug      bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the registration server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadServeConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Config file (default ./liveregister.yaml)")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address")
	cmd.Flags().StringVar(&opts.codec, "codec", "", "Live wire format: phoenix, json or msgpack")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Debug logging and error details")
	return cmd
}

// loadServeConfig reads the config and applies the flags the user set.
func loadServeConfig(cmd *cobra.Command, opts serveOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Address = opts.addr
	}
	if flags.Changed("codec") {
		cfg.Server.Codec = opts.codec
	}
	if flags.Changed("debug") {
		cfg.Server.Debug = opts.debug
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func loadCatalog(path string) (*registration.Catalog, error) {
	if path == "" {
		return registration.DefaultCatalog(), nil
	}
	return registration.LoadCatalog(path)
}

// server is the assembled application.
type server struct {
	handler http.Handler
	router  *router.Router
	health  *health.Checker
}

func newServer(cfg config.Config, cat *registration.Catalog, logger logging.Logger) *server {
	r := router.New(router.WithConfig(cfg.Core()), router.WithLogger(logger))
	r.Use(logging.RequestLogger(logger, "/health", "/metrics", "/_live/"))
	r.Use(router.Recovery())
	r.Use(router.SecureHeaders())
	r.Use(security.NewCSRF(security.CSRFConfig{
		Secret: []byte(cfg.Server.CSRFSecret),
		Secure: cfg.Server.SecureCookies,
	}).Middleware())
	r.Use(router.Timeout(cfg.Timeouts.RequestTimeout))

	r.Live("/", registration.Factory(registration.LevelOnePage, cat))
	r.Live("/level2", registration.Factory(registration.LevelTwoPage, cat))
	r.Handle("/_live/", http.StripPrefix("/_live/", client.Handler()))

	checker := health.NewChecker(version)
	checker.AddCritical("sessions", health.SessionCapacity(r.Sessions().Count, r.Sessions().Max()), 0)
	checker.AddCritical("config", health.Static(cfg.Validate()), 0)
	checker.Add("client", func(context.Context) error { return client.Check() }, time.Second)
	r.Handle("/health", checker.HealthHandler())
	r.Handle("/health/live", checker.LivenessHandler())
	r.Handle("/health/ready", checker.ReadinessHandler())
	r.Handle("/metrics", r.Metrics().Handler())

	return &server{handler: r, router: r, health: checker}
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger := cfg.Logger(os.Stderr)
	logging.SetDefault(logger)

	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return err
	}
	app := newServer(cfg, cat, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	app.router.StartJanitor(janitorCtx)

	plan := shutdown.New(cfg.Timeouts.GracefulShutdown, logger)
	plan.Add(shutdown.StageListener, "http", srv.Shutdown)
	plan.Add(shutdown.StageSessions, "sessions", app.router.Shutdown)
	plan.Add(shutdown.StageBackground, "janitor", func(context.Context) error {
		stopJanitor()
		return nil
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			logging.String("addr", cfg.Server.Address),
			logging.String("codec", app.router.Codec().Name()),
			logging.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
			_ = plan.Run()
		}
	}()

	waitErr := plan.Wait(ctx)
	select {
	case err := <-errCh:
		return err
	default:
	}
	return waitErr
}
