package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"troffee-bid-sync/internal/adapters/broadcaster"
	"troffee-bid-sync/internal/adapters/db"
	"troffee-bid-sync/internal/adapters/ledger"
	"troffee-bid-sync/internal/adapters/redis"
	"troffee-bid-sync/internal/adapters/ws"
	"troffee-bid-sync/internal/app"
	"troffee-bid-sync/internal/config"
	"troffee-bid-sync/internal/domain/auction"
	"troffee-bid-sync/internal/domain/shared"
	"troffee-bid-sync/internal/ports/inbound"
	"troffee-bid-sync/internal/ports/outbound"
)

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	initLogging(cfg)

	log.Info().Msg("Starting Troffee bid sync...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledgerClient := ledger.NewClient(ledger.ClientParams{
		Config: cfg.Ledger,
		Logger: log.Logger,
	})
	log.Info().Str("base_url", cfg.Ledger.BaseURL).Msg("Ledger client initialized")

	// Commit receipts are optional
	var receipts outbound.ReceiptRepository
	if cfg.Database.Enabled() {
		dbConn, err := db.NewConnection(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer dbConn.Close()

		receiptRepo := db.NewReceiptRepository(dbConn)
		if err := receiptRepo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to prepare receipts table")
		}
		receipts = receiptRepo
		log.Info().Msg("Commit receipts journal enabled")
	}

	// The bid feed is optional, sessions fall back to polling alone
	var feed outbound.BidFeed
	if cfg.Redis.Enabled() {
		redisClient := redis.NewClient(cfg.Redis)
		if err := redis.PingRedis(redisClient); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}

		redisBroadcaster := broadcaster.NewBroadcaster(broadcaster.RedisBroadcasterParams{
			RedisClient: redisClient,
			Logger:      log.Logger,
		})
		defer redisBroadcaster.Close()
		feed = redisBroadcaster
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis bid feed enabled")
	}

	clock := clockwork.NewRealClock()
	newSession := func(item *auction.Item, bidder *shared.Bidder, presenter outbound.Presenter) (inbound.BidSession, error) {
		sessionLedger := ledgerClient
		if bidder != nil && bidder.Credential != "" {
			sessionLedger = ledgerClient.WithCredential(bidder.Credential)
		}

		session, err := app.NewBidSession(app.BidSessionParams{
			Item:         item,
			Bidder:       bidder,
			Ledger:       sessionLedger,
			Feed:         feed,
			Receipts:     receipts,
			Presenter:    presenter,
			Clock:        clock,
			PollInterval: cfg.Bidding.PollInterval,
			TickInterval: cfg.Bidding.TickInterval,
			Logger:       log.Logger,
		})
		if err != nil {
			return nil, err
		}
		return session, nil
	}

	itemStatusService := app.NewItemStatusService(app.ItemStatusServiceParams{
		Catalog: ledgerClient,
		Logger:  log.Logger,
	})

	wsServer := ws.NewServer(ws.ServerParams{
		Config:         cfg,
		SessionFactory: newSession,
		ItemStatus:     itemStatusService,
		Logger:         log.Logger,
	})

	log.Info().Msg("WebSocket server initialized")

	go func() {
		if err := wsServer.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start WebSocket server")
			cancel()
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := wsServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping WebSocket server")
	}

	log.Info().Msg("Graceful shutdown completed")
}

func initLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Console format for development
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.DefaultContextLogger = &log.Logger
}
