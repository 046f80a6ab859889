package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/p-blackswan/support-relay/internal/config"
	"github.com/p-blackswan/support-relay/internal/discord"
	"github.com/p-blackswan/support-relay/internal/health"
	"github.com/p-blackswan/support-relay/internal/metrics"
	"github.com/p-blackswan/support-relay/internal/ops"
	"github.com/p-blackswan/support-relay/internal/router"
	"github.com/p-blackswan/support-relay/internal/templates"
	"github.com/p-blackswan/support-relay/internal/ticket"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
	log.Logger = logger

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if cfg.IsDevelopment() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		log.Logger = logger
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("guild_id", cfg.SupportGuildID).
		Str("support_channel_id", cfg.SupportChannelID).
		Str("ops_addr", cfg.OpsListenAddr).
		Msg("starting support relay")

	// Templates
	set, err := templates.Load(cfg.TemplatesFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load templates")
	}
	render, err := set.Compile()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to compile templates")
	}

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	m := metrics.New()
	tickets := ticket.NewRegistry()

	session, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create Discord session")
	}

	relay := router.New(router.Config{
		SupportChannelID: cfg.SupportChannelID,
		SupportRoleID:    cfg.SupportRoleID,
		SupportRoleName:  cfg.SupportRoleName,
		ServerName:       cfg.ServerName,
		WarningTTL:       cfg.WarningTTL,
	}, discord.NewPlatform(session), tickets, render, m, logger)

	app := discord.NewApp(session, relay, cfg.SupportGuildID, m, logger)

	// Health checker
	checker := health.NewChecker(logger)
	checker.Register("discord", health.Flag(app.Ready))

	opsServer := ops.NewServer(ops.Config{ListenAddr: cfg.OpsListenAddr}, checker, tickets, m, logger)

	// WaitGroup for in-flight work
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := opsServer.Start(); err != nil {
			logger.Error().Err(err).Msg("ops server error")
		}
	}()

	gatewayErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		gatewayErr <- app.Run(ctx)
	}()

	// Wait for shutdown signal or a gateway failure
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
	case err := <-gatewayErr:
		if err != nil {
			logger.Error().Err(err).Msg("Discord gateway stopped")
		}
	}

	// Cancel context to signal all goroutines
	cancel()

	if err := opsServer.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("ops server shutdown error")
	}

	// Wait for in-flight work to complete
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("all goroutines stopped")
	case <-time.After(15 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}

	logger.Info().
		Int("open_tickets", tickets.Len()).
		Msg("support relay stopped")
}
