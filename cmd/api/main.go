package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/WishingWellCode/Wishing/internal/chain"
	"github.com/WishingWellCode/Wishing/internal/config"
	"github.com/WishingWellCode/Wishing/internal/handlers"
	"github.com/WishingWellCode/Wishing/internal/logging"
	"github.com/WishingWellCode/Wishing/internal/middleware"
	"github.com/WishingWellCode/Wishing/internal/observability"
	"github.com/WishingWellCode/Wishing/internal/services"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("info", "json")
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisService.Close()

	verifier, err := chain.NewSolanaVerifier(cfg.SolanaRPCURL, cfg.WishTokenMint, services.ExactStake, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create burn verifier")
	}

	var payer chain.Payer
	if cfg.PoolWalletPrivateKey != "" {
		solanaPayer, err := chain.NewSolanaPayer(cfg.SolanaRPCURL, cfg.WishTokenMint, cfg.PoolWalletPrivateKey, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create payout issuer")
		}
		defer solanaPayer.Close()
		payer = solanaPayer
	} else {
		// Payouts will be flagged for manual reconciliation until a pool
		// key is configured.
		log.Warn().Msg("POOL_WALLET_PRIVATE_KEY not set, payouts disabled")
		payer = chain.UnconfiguredPayer{}
	}

	hub := handlers.NewPlazaHub(log)

	fountainService := services.NewFountainService(redisService, verifier, payer, hub, cfg.BurnAddress, log)
	statsService := services.NewStatsService(redisService, log)

	fountainHandler := handlers.NewFountainHandler(fountainService)
	statsHandler := handlers.NewStatsHandler(statsService)
	plazaHandler := handlers.NewPlazaHandler(hub)

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			if _, err := fountainService.SweepStale(context.Background()); err != nil {
				log.Warn().Err(err).Msg("stale session sweep failed")
			}
		}
	}()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(middleware.CORS())

	router.GET("/", func(c *gin.Context) {
		c.String(200, "Wish Well API")
	})
	router.GET("/metrics", observability.Handler())
	router.GET("/ws", plazaHandler.HandlePlaza)

	api := router.Group("/api")
	{
		fountain := api.Group("/fountain")
		{
			fountain.POST("/start", fountainHandler.StartSession)
			fountain.POST("/resolve", fountainHandler.ResolveSession)
			fountain.POST("/clear", fountainHandler.ClearSession)
		}

		api.GET("/stats", statsHandler.GetStats)
		api.GET("/leaderboard", statsHandler.GetLeaderboard)
	}

	log.Info().Str("port", cfg.Port).Msg("server starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
