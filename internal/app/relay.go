// internal/app/relay.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sells-service/internal/config"
	"sells-service/internal/db"
	"sells-service/internal/events"
	"sells-service/internal/integration/openrouter"
	"sells-service/internal/integration/waha"
	"sells-service/internal/middleware"
	"sells-service/internal/pkg/counter"
	"sells-service/internal/relay"
	"sells-service/internal/repository/postgres"
	followupUsecase "sells-service/internal/service/followup"
	visitUsecase "sells-service/internal/service/visit"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RelayServer receives WAHA webhooks and answers WhatsApp leads.
type RelayServer struct {
	cfg       config.AppConfig
	http      *http.Server
	logger    *zap.Logger
	pool      *pgxpool.Pool
	redis     *redis.Client
	processor *relay.Processor
}

func NewRelayServer(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*RelayServer, error) {
	s := &RelayServer{cfg: cfg, logger: logger}

	pool, err := db.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	s.pool = pool

	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addresses: []string{cfg.RedisAddr},
		Password:  cfg.RedisPass,
		PoolSize:  10,
	})
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.redis = redisClient

	if cfg.AI.APIKey == "" {
		logger.Warn("OPENROUTER_API_KEY not set, every reply will use the fallback text")
	}

	// ----- Repositories -----
	leadRepo := postgres.NewLeadRepository(pool)
	visitRepo := postgres.NewVisitRepository(pool)
	brokerRepo := postgres.NewBrokerRepository(pool)
	conversationRepo := postgres.NewConversationRepository(pool)
	followupRepo := postgres.NewFollowupRepository(pool)

	// ----- Integrations -----
	wahaClient := waha.New(cfg.WAHABaseURL, cfg.WAHAAPIKey)
	aiClient := openrouter.New(openrouter.Config{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
		Referer:     cfg.AI.Referer,
		Title:       cfg.AI.Title,
		Timeout:     cfg.AI.Timeout,
	})

	// Dashboards live in the API process; reach them over Redis.
	bus := events.NewRedisBus(redisClient, logger)
	stats := counter.NewStats(redisClient, "sells:relay")
	limiter := counter.NewRateLimiter(redisClient, "sells:relay", cfg.Relay.RateLimit, cfg.Relay.RateWindow)

	visitService := visitUsecase.NewVisitService(visitRepo, brokerRepo, bus, logger)
	followupService := followupUsecase.NewFollowupService(followupRepo, leadRepo, wahaClient, conversationRepo, logger)

	s.processor = relay.NewProcessor(
		wahaClient,
		aiClient,
		leadRepo,
		conversationRepo,
		visitService,
		followupService,
		stats,
		limiter,
		bus,
		relay.Options{
			HistoryLimit:  cfg.Relay.HistoryLimit,
			Humanize:      cfg.Relay.Humanize,
			FollowupsOn:   cfg.Relay.FollowupsOn,
			FallbackReply: cfg.Relay.FallbackReply,
			BrokerChatID:  cfg.BrokerChatID,
			BufferDelay:   cfg.Relay.BufferDelay,
		},
		logger,
	)

	engine := gin.New()
	engine.Use(
		middleware.LoggingMiddleware(logger),
		middleware.RecoveryMiddleware(logger),
	)
	relay.NewHandler(s.processor, stats, logger).RegisterRoutes(engine)

	s.http = &http.Server{
		Addr:              cfg.RelayAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *RelayServer) Start() error {
	s.logger.Info("webhook relay listening",
		zap.String("addr", s.cfg.RelayAddr),
		zap.String("model", s.cfg.AI.Model),
		zap.Duration("buffer_delay", s.cfg.Relay.BufferDelay),
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops taking webhooks, then flushes buffered messages before the
// stores go away.
func (s *RelayServer) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	if cerr := s.processor.Close(ctx); cerr != nil {
		s.logger.Warn("relay shutdown cut short", zap.Error(cerr))
	}
	if cerr := s.redis.Close(); cerr != nil {
		s.logger.Warn("failed to close Redis", zap.Error(cerr))
	}
	s.pool.Close()
	return err
}
