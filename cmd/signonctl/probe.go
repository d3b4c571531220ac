package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/hostbridge/signon/internal/observability"
	"github.com/hostbridge/signon/internal/signon"
)

// probeStatus is the last probe outcome served on /healthz.
type probeStatus struct {
	OK        bool      `json:"ok"`
	CheckedAt time.Time `json:"checked_at"`
	UserID    string    `json:"user_id,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func runProbe(args []string) error {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	configPath := fs.String("config", "", "path to signon config file")
	addr := fs.String("addr", "", "signon service address (host:port)")
	user := fs.String("user", "", "user id")
	password := fs.String("password", "", "password (prefer SIGNON_PASSWORD)")
	interval := fs.Duration("interval", 0, "probe interval (overrides config)")
	listen := fs.String("listen", "", "health/metrics listen address (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := resolveConfig(*configPath, *addr, *user, *password)
	if err != nil {
		return err
	}
	if *interval > 0 {
		cfg.Probe.Interval = *interval
	}
	if *listen != "" {
		cfg.Probe.ListenAddr = *listen
	}
	client, err := signon.NewClient(cfg.Signon)
	if err != nil {
		return err
	}

	observability.RegisterMetrics()

	var last atomic.Value
	last.Store(probeStatus{})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), observability.RequestLogger(log.Logger))
	router.GET("/healthz", func(c *gin.Context) {
		status := last.Load().(probeStatus)
		code := http.StatusOK
		if !status.OK {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{Addr: cfg.Probe.ListenAddr, Handler: router}
	go func() {
		log.Info().Str("addr", cfg.Probe.ListenAddr).Msg("probe endpoints listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("probe listener failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("host", client.Host()).
		Dur("interval", cfg.Probe.Interval).
		Msg("starting signon probe")

	ticker := time.NewTicker(cfg.Probe.Interval)
	defer ticker.Stop()

	probeOnce(ctx, client, cfg.Probe.Interval, &last)
	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			probeOnce(ctx, client, cfg.Probe.Interval, &last)
		}
	}
}

func probeOnce(ctx context.Context, client *signon.Client, budget time.Duration, last *atomic.Value) {
	probeCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	start := time.Now()
	info, err := client.Signon(probeCtx)
	observability.RecordSignon(client.Host(), time.Since(start), err)

	status := probeStatus{CheckedAt: time.Now().UTC()}
	if err != nil {
		status.Error = err.Error()
		log.Warn().Err(err).Str("host", client.Host()).Msg("signon probe failed")
	} else {
		status.OK = true
		status.UserID = info.UserID
		log.Debug().
			Str("host", client.Host()).
			Str("user", info.UserID).
			Dur("duration", time.Since(start)).
			Msg("signon probe succeeded")
	}
	last.Store(status)
}
