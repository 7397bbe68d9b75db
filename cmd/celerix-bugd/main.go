package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/celerix-dev/celerix-bugs/internal/api"
	"github.com/celerix-dev/celerix-bugs/internal/config"
	"github.com/celerix-dev/celerix-bugs/internal/logging"
	"github.com/celerix-dev/celerix-bugs/internal/server"
	"github.com/celerix-dev/celerix-bugs/internal/telemetry"
	"github.com/celerix-dev/celerix-bugs/internal/vault"
	"github.com/celerix-dev/celerix-bugs/pkg/sdk"
)

const shutdownTimeout = 10 * time.Second

var configFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	cmd := &cobra.Command{
		Use:          "celerix-bugd",
		Short:        "Bug tracker daemon serving the TCP protocol and the HTTP API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "YAML config file")
	f.String("data-dir", "./data", "directory holding the bug snapshot")
	f.String("port", "7001", "TCP protocol port")
	f.String("http-port", "7002", "HTTP API port")
	f.Bool("disable-tls", false, "serve the TCP protocol in plaintext")
	f.String("users-file", "", "YAML identity directory (demo users when empty)")
	f.String("log-level", "info", "debug, info, warn or error")
	f.String("log-format", "text", "text or json")
	f.Bool("telemetry", false, "export traces and metrics to stderr")
	f.Bool("seed", false, "file the demo bugs into an empty store")

	for _, name := range []string{"data-dir", "port", "http-port", "disable-tls", "users-file", "log-level", "log-format", "telemetry", "seed"} {
		_ = v.BindPFlag(strings.ReplaceAll(name, "-", "_"), f.Lookup(name))
	}
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.Init(level, cfg.LogFormat)
	log := logging.New("daemon")

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Options{Enabled: cfg.Telemetry, ServiceName: "celerix-bugd"})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			log.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	key, err := cfg.Key()
	if err != nil {
		return err
	}
	tracker, err := sdk.OpenLocal(sdk.LocalOptions{DataDir: cfg.DataDir, DataKey: key, UsersFile: cfg.UsersFile})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		tracker.Close()
		log.Info("persistence complete")
	}()

	summary, _ := tracker.Summary(ctx)
	log.Info("engine started", "data_dir", cfg.DataDir, "bugs", summary.Total, "encrypted", key != nil)

	if cfg.Seed {
		if err := seed(ctx, tracker, log); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	router := server.NewRouter(tracker)
	if !cfg.DisableTLS {
		cert, err := vault.GenerateSelfSignedCert()
		if err != nil {
			return fmt.Errorf("failed to generate TLS certificate: %w", err)
		}
		router.SetCertificate(cert)
		log.Info("TLS encryption enabled")
	} else {
		log.Warn("TLS encryption disabled")
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           newHTTPHandler(tracker, cfg.LogLevel == "debug"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("TCP protocol listening", "port", cfg.Port)
		return router.Listen(cfg.Port)
	})
	g.Go(func() error {
		log.Info("HTTP API listening", "port", cfg.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(router.Stop(), httpSrv.Shutdown(sctx))
	})
	return g.Wait()
}

func newHTTPHandler(tracker sdk.Tracker, debug bool) http.Handler {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logging.New("http")))

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, "+api.ActorHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	h := &api.Handler{Tracker: tracker}
	h.Register(r.Group("/api"))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "API route not found"})
	})
	return r
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
