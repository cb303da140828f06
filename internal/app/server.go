// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sells-service/internal/config"
	"sells-service/internal/db"
	wstypes "sells-service/internal/domain/websocket"
	"sells-service/internal/events"
	analyticsHandler "sells-service/internal/handlers/analytics"
	brokerHandler "sells-service/internal/handlers/broker"
	leadHandler "sells-service/internal/handlers/lead"
	visitHandler "sells-service/internal/handlers/visit"
	wsHandler "sells-service/internal/handlers/websocket"
	"sells-service/internal/integration/waha"
	"sells-service/internal/middleware"
	"sells-service/internal/pkg/cache"
	"sells-service/internal/repository/postgres"
	"sells-service/internal/scheduler"
	analyticsUsecase "sells-service/internal/service/analytics"
	brokerUsecase "sells-service/internal/service/broker"
	followupUsecase "sells-service/internal/service/followup"
	leadUsecase "sells-service/internal/service/lead"
	visitUsecase "sells-service/internal/service/visit"
	"sells-service/internal/websocket"
	wsHandlers "sells-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Server is the dashboard backend: REST API, live websocket feed and the
// maintenance jobs.
type Server struct {
	cfg       config.AppConfig
	engine    *gin.Engine
	http      *http.Server
	logger    *zap.Logger
	pool      *pgxpool.Pool
	redis     *redis.Client
	hub       *websocket.Hub
	bus       *events.RedisBus
	publisher events.Publisher
	scheduler *scheduler.Scheduler

	cancel context.CancelFunc
}

// NewServer connects to PostgreSQL and Redis and wires every component.
func NewServer(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	s.pool = pool
	logger.Info("connected to PostgreSQL")

	// ----- Redis -----
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
	logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))

	stages, err := config.LoadFunnelStages(cfg.FunnelConfigPath)
	if err != nil {
		s.closeStores()
		return nil, err
	}

	// ----- Repositories -----
	leadRepo := postgres.NewLeadRepository(pool)
	visitRepo := postgres.NewVisitRepository(pool)
	brokerRepo := postgres.NewBrokerRepository(pool)
	conversationRepo := postgres.NewConversationRepository(pool)
	followupRepo := postgres.NewFollowupRepository(pool)
	analyticsRepo := postgres.NewAnalyticsRepository(pool)

	// ----- Live events -----
	// Local changes go straight to the hub; the relay's changes arrive over
	// the Redis bus and take the same path.
	s.hub = websocket.NewHub(logger)
	responseCache := cache.NewJSONCache(redisClient, "sells:analytics:")
	s.publisher = events.Multi{s.hub, events.NewInvalidator(responseCache)}
	s.bus = events.NewRedisBus(redisClient, logger)

	// ----- Services -----
	wahaClient := waha.New(cfg.WAHABaseURL, cfg.WAHAAPIKey)
	analyticsService := analyticsUsecase.NewAnalyticsService(analyticsRepo, responseCache, cfg.AnalyticsTTL, stages, cfg.Location, logger)
	leadService := leadUsecase.NewLeadService(leadRepo, visitRepo, conversationRepo, followupRepo, s.publisher, cfg.WAHASession, logger)
	visitService := visitUsecase.NewVisitService(visitRepo, brokerRepo, s.publisher, logger)
	brokerService := brokerUsecase.NewBrokerService(brokerRepo, visitRepo, analyticsRepo, s.publisher, cfg.Location, logger)
	followupService := followupUsecase.NewFollowupService(followupRepo, leadRepo, wahaClient, conversationRepo, logger)
	reminderService := followupUsecase.NewReminderService(visitRepo, wahaClient, conversationRepo, s.publisher, followupUsecase.ReminderConfig{
		Session:      cfg.WAHASession,
		BrokerChatID: cfg.BrokerChatID,
		Location:     cfg.Location,
	}, logger)

	s.hub.RegisterHandler(wsHandlers.NewMetricsHandler(analyticsService))

	s.scheduler = scheduler.New(scheduler.Config{
		FollowupSpec:    cfg.Maintenance.FollowupSpec,
		ReminderSpec:    cfg.Maintenance.ReminderSpec,
		CleanupSpec:     cfg.Maintenance.CleanupSpec,
		RetentionDays:   cfg.Maintenance.RetentionDays,
		KeepLastPerConv: cfg.Maintenance.KeepLastPerConv,
	}, followupService, reminderService, conversationRepo, logger)

	// ----- Handlers -----
	leadHandlerInst := leadHandler.NewLeadHandler(leadService)
	handlers := &Handlers{
		LeadHandler:      leadHandlerInst,
		LandingHandler:   leadHandlerInst.RegisterLanding,
		VisitHandler:     visitHandler.NewVisitHandler(visitService),
		BrokerHandler:    brokerHandler.NewBrokerHandler(brokerService),
		AnalyticsHandler: analyticsHandler.NewAnalyticsHandler(analyticsService),
		WSHandler:        wsHandler.NewWebSocketHandler(s.hub, cfg.CORSOrigins, logger),
	}

	// ----- Middlewares -----
	s.engine = gin.New()
	s.engine.Use(
		middleware.LoggingMiddleware(logger),
		middleware.RecoveryMiddleware(logger),
		middleware.CORSMiddleware(cfg.CORSOrigins),
	)

	// ----- Router -----
	SetupRouter(s.engine, handlers)

	s.http = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Start runs the background workers and serves HTTP until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.hub.Run(ctx)
	go s.forwardBus(ctx)

	if err := s.scheduler.Start(ctx); err != nil {
		return err
	}

	s.logger.Info("dashboard API listening", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// forwardBus feeds events published by other processes into the local
// publisher, resubscribing after Redis failures.
func (s *Server) forwardBus(ctx context.Context) {
	sink := func(ev *wstypes.Event) {
		events.Emit(ctx, s.publisher, s.logger, ev)
	}
	for ctx.Err() == nil {
		if err := s.bus.Subscribe(ctx, sink); err != nil && ctx.Err() == nil {
			s.logger.Warn("event bus subscription lost", zap.Error(err))
			alert := &wstypes.SystemAlertData{
				Severity: "warning",
				Title:    "Realtime updates delayed",
				Message:  "WhatsApp events will resume once the event bus reconnects.",
			}
			if err := s.hub.BroadcastSystemAlert(ctx, alert); err != nil {
				s.logger.Debug("system alert dropped", zap.Error(err))
			}
		}
		select {
		case <-ctx.Done():
		case <-time.After(2 * time.Second):
		}
	}
}

// Shutdown stops accepting requests, waits for running jobs and closes the
// stores.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	if s.cancel != nil {
		s.cancel()
	}
	s.scheduler.Stop()
	s.closeStores()
	return err
}

func (s *Server) closeStores() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("failed to close Redis", zap.Error(err))
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}
