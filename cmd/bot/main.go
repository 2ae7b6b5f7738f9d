package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-structure-bot/config"
	"market-structure-bot/internal/analysis"
	"market-structure-bot/internal/annotation"
	"market-structure-bot/internal/api"
	"market-structure-bot/internal/auth"
	"market-structure-bot/internal/bot"
	"market-structure-bot/internal/broker"
	"market-structure-bot/internal/events"
	"market-structure-bot/internal/logging"
	"market-structure-bot/internal/marketdata"
	"market-structure-bot/internal/recorder"
	"market-structure-bot/internal/risk"
	"market-structure-bot/internal/strategy"
	"market-structure-bot/internal/vault"
	"market-structure-bot/internal/zigzag"
)

func main() {
	genConfig := flag.String("generate-config", "", "write a sample config to the given path and exit")
	flag.Parse()

	if *genConfig != "" {
		if err := config.GenerateSampleConfig(*genConfig); err != nil {
			os.Stderr.WriteString("failed to write sample config: " + err.Error() + "\n")
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Level:  cfg.LoggingConfig.Level,
		Format: cfg.LoggingConfig.Format,
	})

	// Feed credentials from Vault take precedence over config when enabled.
	if cfg.VaultConfig.Enabled {
		vc, err := vault.NewClient(cfg.VaultConfig)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create vault client")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		creds, err := vc.GetFeedCredentials(ctx)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to fetch feed credentials from vault")
		}
		cfg.FeedConfig.APIKey = creds.APIKey
		cfg.FeedConfig.SecretKey = creds.SecretKey
		logger.Info().Msg("Feed credentials loaded from vault")
	}

	bus := events.NewEventBus()

	tradingSeries := marketdata.NewSeries(cfg.FeedConfig.Symbol, cfg.FeedConfig.Interval)
	hourlySeries := marketdata.NewSeries(cfg.FeedConfig.Symbol, cfg.FeedConfig.HourlyInterval)

	stream := marketdata.NewKlineStream(cfg.FeedConfig.WebSocketURL, cfg.FeedConfig.RestURL, logger)
	stream.Register(tradingSeries)
	stream.Register(hourlySeries)

	instrument := broker.Instrument{
		Symbol:     cfg.FeedConfig.Symbol,
		TickSize:   cfg.InstrumentConfig.TickSize,
		PipSize:    cfg.InstrumentConfig.PipSize,
		PipValue:   cfg.InstrumentConfig.PipValue,
		LotSize:    cfg.InstrumentConfig.LotSize,
		VolumeStep: cfg.InstrumentConfig.VolumeStep,
		VolumeMin:  cfg.InstrumentConfig.VolumeMin,
		VolumeMax:  cfg.InstrumentConfig.VolumeMax,
	}

	paperBroker := broker.NewPaperBroker(instrument, cfg.PaperConfig.StartingBalance, cfg.PaperConfig.Currency, func() (float64, bool) {
		bar, ok := tradingSeries.Last()
		return bar.Close, ok
	}, logger)

	riskManager := risk.NewManager(cfg.StrategyConfig.MaxTradesPerDay)
	riskManager.UpdateBalance(cfg.PaperConfig.StartingBalance)

	engine := analysis.NewStructureEngine(tradingSeries, cfg.StrategyConfig.SwingLookback, logger)
	hourlyFilter := zigzag.NewFilter(hourlySeries, zigzag.Params{
		Depth:     cfg.StrategyConfig.H1ZigZagDepth,
		Deviation: cfg.StrategyConfig.H1ZigZagDeviation,
		Backstep:  cfg.StrategyConfig.H1ZigZagBackstep,
	}, cfg.InstrumentConfig.TickSize)

	bosStrategy := strategy.NewBosStrategy(strategy.BosConfig{
		Symbol:             cfg.FeedConfig.Symbol,
		Interval:           cfg.FeedConfig.Interval,
		RiskPercent:        cfg.StrategyConfig.RiskPercent,
		StopLossBufferPips: cfg.StrategyConfig.StopLossBufferPips,
		MinStopLossPips:    cfg.StrategyConfig.MinStopLossPips,
		MinTakeProfitPips:  cfg.StrategyConfig.MinTakeProfitPips,
		TakeProfitRR:       cfg.StrategyConfig.TakeProfitRR,
		MaxOpenPositions:   cfg.StrategyConfig.MaxOpenPositions,
	}, engine, hourlyFilter, hourlySeries, paperBroker, riskManager, logger)

	annotator := annotation.NewAnnotator(logger)

	var hist recorder.Recorder = recorder.Noop{}
	if cfg.RecorderConfig.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		pg, err := recorder.NewPostgres(ctx, cfg.RecorderConfig.DatabaseURL, logger)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to recorder database")
		}
		hist = pg
	}
	defer hist.Close()

	var snapshots *recorder.SnapshotPublisher
	if cfg.RedisConfig.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		sp, err := recorder.NewSnapshotPublisher(ctx, cfg.RedisConfig.Address, cfg.RedisConfig.Password,
			cfg.RedisConfig.DB, time.Duration(cfg.RedisConfig.SnapshotTTL)*time.Second, logger)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		snapshots = sp
		defer sp.Close()
	}

	tradingBot := bot.New(bot.Deps{
		TradingSeries: tradingSeries,
		HourlySeries:  hourlySeries,
		Engine:        engine,
		HourlyFilter:  hourlyFilter,
		Strategy:      bosStrategy,
		Broker:        paperBroker,
		RiskManager:   riskManager,
		Annotator:     annotator,
		Recorder:      hist,
		Snapshots:     snapshots,
		Stream:        stream,
		Bus:           bus,
	}, logger)

	if err := tradingBot.Start(cfg.FeedConfig.BackfillLimit); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start bot")
	}

	var server *api.Server
	if cfg.ServerConfig.Enabled {
		var authService *auth.Service
		if cfg.AuthConfig.Enabled {
			jwtManager := auth.NewJWTManager(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.AccessTokenDuration)
			authService = auth.NewService(cfg.AuthConfig.Username, cfg.AuthConfig.PasswordHash, jwtManager)
		}
		server = api.NewServer(cfg.ServerConfig, engine, paperBroker, annotator, authService, bus, logger)
		server.Start()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Shutting down")

	tradingBot.Stop()
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("API server shutdown error")
		}
		cancel()
	}
}
