package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"chatkitlab/internal/api"
	"chatkitlab/internal/chatkit"
	"chatkitlab/internal/embedconfig"
	"chatkitlab/internal/session"
	"chatkitlab/pkg/config"
	"chatkitlab/pkg/logger"
	"chatkitlab/pkg/metrics"
	"chatkitlab/pkg/middleware"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg config.Config) error {
	log := logger.New(cfg.Env)
	defer log.Sync()

	started := time.Now()
	ec := embedconfig.Resolve(cfg, started)

	var upstream session.Minter
	if ec.SessionAPIEnabled {
		c, err := chatkit.New(cfg.APIBase, cfg.APIKey, cfg.SecretPath, cfg.UpstreamTimeout)
		if err != nil {
			return fmt.Errorf("chatkit client: %w", err)
		}
		upstream = c
	}
	broker := session.NewBroker(ec, upstream, log, metrics.NewSessions(prometheus.DefaultRegisterer))

	tracing, shutdownTracing := middleware.Tracing("chatkit-lab", log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(chimw.RealIP)
	r.Use(middleware.Recover(log))
	r.Use(middleware.AccessLog(log))
	r.Use(middleware.DebugWriteHeader(log))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(tracing)

	api.RegisterRoutes(r, api.Deps{Config: ec, Broker: broker, Log: log, Started: started})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	if cfg.StaticDirExists() {
		api.MountStatic(r, cfg.StaticDir)
	}

	srv := &http.Server{Addr: cfg.HTTPAddr(), Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		log.Infow("chatkit-lab listening",
			"addr", cfg.HTTPAddr(),
			"public_base_url", ec.PublicBaseURL,
			"strategy", string(ec.Strategy()),
			"workflow_id", ec.WorkflowID())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warnw("shutdown", "err", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Warnw("tracing shutdown", "err", err)
	}
	log.Infow("chatkit-lab stopped")
	return nil
}
