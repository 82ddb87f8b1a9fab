package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kollektive-hackathon/agora-backend/internal/agent"
	"github.com/kollektive-hackathon/agora-backend/internal/arena"
	"github.com/kollektive-hackathon/agora-backend/internal/decision"
	"github.com/kollektive-hackathon/agora-backend/internal/keymgmt"
	"github.com/kollektive-hackathon/agora-backend/internal/ledger"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/blockchain"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/config"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/middleware"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/pubsub"
	pkgws "github.com/kollektive-hackathon/agora-backend/internal/pkg/ws"
	"github.com/kollektive-hackathon/agora-backend/internal/ws"
	"github.com/kollektive-hackathon/agora-backend/pkg/firebase"
	"github.com/onflow/flow-go-sdk/access/grpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	setupViper()
	setupZerolog()

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := setupDb(cfg)

	var publisher pubsub.Publisher = pubsub.Noop{}
	var pubsubClient *pubsub.Client
	if cfg.GoogleProjectId != "" {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.GoogleProjectId)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize pub sub")
		}
		defer pubsubClient.Close()
		publisher = pubsubClient
	}

	firebaseClient, err := firebase.NewClient(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize firebase")
	}
	auth := middleware.VerifyAuthToken(firebaseClient)

	hub := pkgws.NewNotificationHub()
	platform := blockchain.NewAuthorizer(cfg.PlatformKmsResourceId, cfg.PlatformAddress)
	chain := setupLedger(ctx, cfg, platform)
	random := arena.NewTimeSeededRandom()

	agentRepo := agent.NewGormRepository(db)
	agentService := agent.NewService(agentRepo, agent.ServiceConfig{
		Keys:           setupKeys(cfg),
		Ledger:         chain,
		Publisher:      publisher,
		Notifier:       hub,
		Platform:       platform,
		InitialFunding: cfg.AgentInitialFunding,
		Random:         random,
	})

	manager := arena.NewManager(arena.ManagerConfig{
		Store:           arena.NewGormStore(db),
		Agents:          agent.NewDirectory(agentRepo),
		Decisions:       decision.NewProvider(setupGenerator(ctx, cfg), random),
		Ledger:          chain,
		Random:          random,
		Events:          arena.NewEventBridge(publisher, hub),
		Metrics:         arena.NewMetrics(prometheus.DefaultRegisterer),
		DecisionTimeout: cfg.DecisionTimeout,
		LedgerTimeout:   cfg.LedgerTimeout,
		RoundPause:      cfg.RoundPause,
	})

	if pubsubClient != nil {
		go pubsubClient.Subscribe(agent.AccountCreatedHandler(agentService))
	}

	if cfg.AutopilotInterval > 0 {
		autopilot := arena.NewAutopilot(manager, cfg.AutopilotInterval, cfg.AutopilotRealValue)
		if err := autopilot.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start arena autopilot")
		}
		defer autopilot.Shutdown()
	}

	apiRouter := gin.Default()
	middleware.RegisterGlobalMiddleware(apiRouter)
	routerGroup := apiRouter.Group("/agora-api")

	arena.RegisterRoutes(routerGroup, manager, auth)
	agent.RegisterRoutes(routerGroup, agentService, auth)
	ws.RegisterRoutes(routerGroup, hub)
	apiRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// POST /arenas/:id/start answers once the whole tournament has been played
	server := &http.Server{
		Addr:         cfg.Port,
		Handler:      apiRouter,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Minute,
	}

	go func() {
		log.Info().Str("addr", cfg.Port).Msg("Agora API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Error during server shutdown")
	}
}

func setupDb(cfg config.Config) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DbUrl), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	sqlDb, _ := db.DB()
	sqlDb.SetMaxOpenConns(50)
	sqlDb.SetConnMaxLifetime(time.Minute * 10)

	err = db.AutoMigrate(&model.Agent{}, &model.Arena{}, &model.Participant{}, &model.Match{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	return db
}

func setupLedger(ctx context.Context, cfg config.Config, platform blockchain.Authorizer) arena.Ledger {
	if !cfg.LedgerEnabled() {
		log.Warn().Msg("Flow ledger not configured, real value entry and payouts are disabled")
		return ledger.Disabled{}
	}

	flowClient, err := grpc.NewClient(cfg.FlowAccessHost)
	if err != nil {
		log.Fatal().Err(err).Str("host", cfg.FlowAccessHost).Msg("Failed to connect to Flow access node")
	}

	signers, err := ledger.NewKmsSigners(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize KMS signers")
	}

	return ledger.NewFlowLedger(flowClient, signers, ledger.Config{
		Platform:             platform,
		FlowTokenAddress:     cfg.FlowTokenAddress,
		FungibleTokenAddress: cfg.FungibleTokenAddress,
	})
}

func setupKeys(cfg config.Config) agent.KeyGenerator {
	keys, err := keymgmt.NewKeyManager(cfg.KmsProjectId, cfg.KmsLocationId, cfg.KmsKeyRingId)
	if err != nil {
		log.Warn().Err(err).Msg("Key management disabled, agents are created without wallets")
		return nil
	}
	return keys
}

func setupGenerator(ctx context.Context, cfg config.Config) decision.Generator {
	if cfg.GeminiApiKey == "" {
		log.Info().Msg("No GEMINI_API_KEY, agents play random legal moves")
		return nil
	}
	generator, err := decision.NewGeminiGenerator(ctx, cfg.GeminiApiKey, cfg.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Gemini client")
	}
	return generator
}

func setupViper() {
	viper.AutomaticEnv()
	viper.SetConfigFile("./.env")
	config.SetDefaults(viper.GetViper())
	if err := viper.ReadInConfig(); err != nil {
		log.Debug().Err(err).Msg("No .env file, using environment only")
	}
}

func setupZerolog() {
	zerolog.LevelFieldName = "severity"
	zerolog.TimestampFieldName = "time"
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
