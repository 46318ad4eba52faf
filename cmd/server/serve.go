package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/buddy-auth/access"
	"github.com/jrsteele09/buddy-auth/auth"
	"github.com/jrsteele09/buddy-auth/auth/authlog"
	"github.com/jrsteele09/buddy-auth/internal/config"
	"github.com/jrsteele09/buddy-auth/internal/logger"
	"github.com/jrsteele09/buddy-auth/internal/telemetry"
	"github.com/jrsteele09/buddy-auth/server"
	"github.com/jrsteele09/buddy-auth/sessions"
	"github.com/jrsteele09/buddy-auth/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ServeCmd runs the HTTP server until SIGINT or SIGTERM.
type ServeCmd struct {
	Config        string        `help:"Path to a YAML config file." type:"path" env:"BUDDY_CONFIG"`
	Listen        string        `help:"Listen address, overriding the configured port." env:"BUDDY_LISTEN"`
	PurgeInterval time.Duration `help:"How often expired session tokens are purged." default:"5m"`
	Metrics       bool          `help:"Export metrics over OTLP gRPC (configured by OTEL_EXPORTER_OTLP_*)." env:"BUDDY_METRICS"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) (returnError error) {
	log := logger.Setup(globals.Debug)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := loadConfig(c.Config)
	if err != nil {
		return errors.Wrap(err, "[ServeCmd.Run] loading config")
	}
	displayAppname(cfg.GetAppName())

	if c.Metrics {
		shutdownMetrics, err := telemetry.InitMeterProvider(ctx, cfg.GetAppName(), globals.Version, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize metrics, continuing without export")
		} else {
			defer func() {
				if err := shutdownMetrics(context.Background()); err != nil {
					log.Warn().Err(err).Msg("metrics shutdown")
				}
			}()
		}
	}

	handler, authService, err := build(cfg, log)
	if err != nil {
		return err
	}

	addr := cfg.GetPort()
	if c.Listen != "" {
		addr = c.Listen
	}
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go purgeExpiredTokens(ctx, authService, c.PurgeInterval)

	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(srv, log) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	cancel()
	return shutdown(srv, log)
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.New()
	}
	return config.Load(path)
}

// build wires the token manager, arbiter, session manager and access gate
// behind the HTTP server.
func build(cfg config.Config, log zerolog.Logger) (http.Handler, *auth.Service, error) {
	metrics := telemetry.GetMetrics()

	signer, err := token.NewSigner(cfg.GetTokenSecret())
	if err != nil {
		return nil, nil, errors.Wrap(err, "[build] token signer")
	}
	if cfg.GetTokenSecret() == "" {
		log.Warn().Msg("TOKEN_SECRET not set; issued tokens will not survive a restart")
	}
	tokens := token.New(token.NewInMemoryRepo(), signer, token.WithTokenExpiry(cfg.GetTokenExpiry()))

	authService, err := auth.NewService(auth.Policy{
		MasterUser:       cfg.GetMasterUser(),
		Passphrase:       cfg.GetPassphrase(),
		MasterDevices:    cfg.GetMasterDevices(),
		EnableVoiceAuth:  cfg.GetEnableVoiceAuth(),
		EnableDeviceAuth: cfg.GetEnableDeviceAuth(),
	}, tokens,
		auth.WithLogger(log.With().Str("component", "auth").Logger()),
		auth.WithAuthLog(authlog.NewRingRepo(cfg.GetAuthLogCapacity())),
		auth.WithMetrics(metrics),
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[build] auth service")
	}

	sessionManager := sessions.NewManager(sessions.NewInMemoryRepo(),
		sessions.WithIdleTimeout(cfg.GetSessionIdleTimeout()),
		sessions.WithEndPhrases(cfg.GetSessionEndPhrases()...),
		sessions.WithLogger(log.With().Str("component", "sessions").Logger()),
		sessions.WithMetrics(metrics),
	)

	gate := access.NewGate(authService,
		access.WithLogger(log.With().Str("component", "access").Logger()),
		access.WithMetrics(metrics),
	)

	srv, err := server.New(cfg, authService, sessionManager, gate, server.WithLogger(log))
	if err != nil {
		return nil, nil, errors.Wrap(err, "[build] server")
	}
	return srv, authService, nil
}

func purgeExpiredTokens(ctx context.Context, authService *auth.Service, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			authService.PurgeExpiredTokens(ctx)
		}
	}
}

func listenAndServe(srv *http.Server, log zerolog.Logger) error {
	log.Info().Str("addr", srv.Addr).Msg("server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(srv *http.Server, log zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
