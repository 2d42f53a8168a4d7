package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mrab54/football-ingestor/internal/apifootball"
	"github.com/mrab54/football-ingestor/internal/config"
	"github.com/mrab54/football-ingestor/internal/coverage"
	"github.com/mrab54/football-ingestor/internal/delta"
	"github.com/mrab54/football-ingestor/internal/depresolve"
	"github.com/mrab54/football-ingestor/internal/jobs"
	"github.com/mrab54/football-ingestor/internal/liveloop"
	"github.com/mrab54/football-ingestor/internal/ratelimit"
	"github.com/mrab54/football-ingestor/internal/scheduler"
	"github.com/mrab54/football-ingestor/internal/scope"
	"github.com/mrab54/football-ingestor/internal/server"
	"github.com/mrab54/football-ingestor/internal/storage"
	"github.com/mrab54/football-ingestor/internal/storage/core"
	"github.com/mrab54/football-ingestor/internal/storage/mart"
	"github.com/mrab54/football-ingestor/internal/storage/raw"
	"github.com/mrab54/football-ingestor/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	fmt.Printf("Football Ingestor\n")
	fmt.Printf("Version: %s, Commit: %s, Built: %s\n", version, commit, date)

	if len(os.Args) > 1 && os.Args[1] == "health" {
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if cfg.Server.Environment != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if lvl, lvlErr := zerolog.ParseLevel(cfg.Server.LogLevel); lvlErr == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	zlog := logger.New(cfg.Server.LogLevel)
	defer zlog.Sync()

	log.Info().
		Str("version", version).
		Str("commit", commit).
		Str("built", date).
		Str("environment", cfg.Server.Environment).
		Msg("starting football ingestor")

	tracked, err := config.LoadTracked(envOr("INGESTOR_TRACKED_CONFIG", "config/daily.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load tracked leagues config")
	}

	catalogue, err := config.LoadCatalogue(envOr("INGESTOR_JOBS_DIR", "config/jobs"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load job catalogue")
	}
	unambiguousSeason, isUnambiguous := tracked.UnambiguousSeason()
	catalogue.ApplyBootstrapScopeInheritance(tracked.LeagueIDs(), unambiguousSeason, isUnambiguous)

	scopePolicy, err := scope.LoadPolicy(envOr("INGESTOR_SCOPE_POLICY", "config/scope_policy.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load scope policy")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.NewDB(ctx, &storage.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxConnections),
		MinConns:        int32(cfg.Database.MinConnections),
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	}, zlog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse redis url")
	}
	redisOpts.DialTimeout = cfg.Redis.DialTimeout
	redisOpts.ReadTimeout = cfg.Redis.ReadTimeout
	redisOpts.WriteTimeout = cfg.Redis.WriteTimeout
	redisOpts.PoolSize = cfg.Redis.PoolSize
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	apiKey := os.Getenv(cfg.API.APIKeyEnv)
	if apiKey == "" {
		log.Warn().Str("env_var", cfg.API.APIKeyEnv).Msg("api key env var is unset, requests will be unauthenticated")
	}

	limiter := ratelimit.New(cfg.RateLimiter.TokenBucketPerMinute, cfg.RateLimiter.MinuteSoftLimit, cfg.RateLimiter.EmergencyStopThreshold, zlog)
	client := apifootball.New(cfg.API.BaseURL, apiKey, cfg.API.TimeoutSeconds, limiter, zlog)

	rawRepo := raw.New(db.Pool())
	coreRepo := core.New(db.Pool(), zlog)
	martRepo := mart.New(db.Pool())
	resolver := depresolve.New(client, coreRepo, zlog)
	resolver.VenuesBackfillMaxPerRun = cfg.Feature.VenuesBackfillMaxPerRun
	deltaDetector := delta.New(rdb, cfg.Coverage.MaxLagMinutes.Live*60, zlog)

	expectedFixtures := make(map[int]int, len(cfg.Coverage.ExpectedFixtures))
	for k, v := range cfg.Coverage.ExpectedFixtures {
		var id int
		if _, scanErr := fmt.Sscanf(k, "%d", &id); scanErr == nil {
			expectedFixtures[id] = v
		}
	}
	coverageCalc := coverage.New(db.Pool(), coverage.Config{
		ExpectedFixtures: expectedFixtures,
		MaxLagMinutes:    cfg.Coverage.MaxLagMinutes.Daily,
		Weights: coverage.Weights{
			Count:     cfg.Coverage.Weights.Count,
			Freshness: cfg.Coverage.Weights.Freshness,
			Pipeline:  cfg.Coverage.Weights.Pipeline,
		},
	})

	deps := &jobs.Deps{
		Client:   client,
		Limiter:  limiter,
		DB:       db,
		Raw:      rawRepo,
		Core:     coreRepo,
		Scope:    scopePolicy,
		Delta:    deltaDetector,
		Coverage: coverageCalc,
		Mart:     martRepo,
		Resolver: resolver,
		Logger:   zlog,
		Tracked:  tracked,
	}

	sched := scheduler.New(catalogue, deps, zlog)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	trackedLeagueIDs := make(map[int64]struct{}, len(tracked.Leagues))
	for _, id := range tracked.LeagueIDs() {
		trackedLeagueIDs[int64(id)] = struct{}{}
	}

	loop := &liveloop.Loop{
		Client:           client,
		Raw:              rawRepo,
		Core:             coreRepo,
		Scope:            scopePolicy,
		Delta:            deltaDetector,
		Resolver:         resolver,
		Logger:           zlog,
		TrackedLeagueIDs: trackedLeagueIDs,
		PollInterval:     time.Duration(cfg.LiveLoop.PollIntervalSeconds) * time.Second,
		DryRun:           cfg.LiveLoop.DryRun,
	}
	if cfg.Feature.EnableLiveLoop {
		go loop.Run(ctx)
	} else {
		log.Info().Msg("live loop disabled by feature.enable_live_loop")
	}

	srv, err := server.New(cfg, db, sched)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create ops server")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("context cancelled, shutting down")
	case err := <-serverErr:
		log.Error().Err(err).Msg("ops server error")
		cancel()
	}

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during ops server shutdown")
	}
	db.Close()

	log.Info().Msg("football ingestor stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
