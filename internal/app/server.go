// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"pillflow-service/internal/config"
	"pillflow-service/internal/db"
	authHandler "pillflow-service/internal/handlers/auth"
	customerHandler "pillflow-service/internal/handlers/customer"
	eventHandler "pillflow-service/internal/handlers/event"
	packHandler "pillflow-service/internal/handlers/pack"
	reportHandler "pillflow-service/internal/handlers/report"
	wsHandler "pillflow-service/internal/handlers/websocket"
	"pillflow-service/internal/middleware"
	"pillflow-service/internal/migration"
	"pillflow-service/internal/pkg/clock"
	"pillflow-service/internal/pkg/jwt"
	"pillflow-service/internal/pkg/session"
	"pillflow-service/internal/repository/postgres"
	authUsecase "pillflow-service/internal/service/auth"
	customersvc "pillflow-service/internal/service/customer"
	eventsvc "pillflow-service/internal/service/event"
	packsvc "pillflow-service/internal/service/pack"
	reportsvc "pillflow-service/internal/service/report"
	"pillflow-service/internal/service/schedule"
	"pillflow-service/internal/websocket"
	wsHandlers "pillflow-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	httpServer *http.Server
	pool       *pgxpool.Pool
	redis      *redis.Client
	stopHub    context.CancelFunc
}

func NewServer() *Server {
	cfg := config.Load()
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine, logger: newLogger(cfg)}
}

// newLogger builds the production JSON logger, or the console logger when
// LOG_DEV is set.
func newLogger(cfg config.AppConfig) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if cfg.LogDev {
		zcfg = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (s *Server) Start() error {
	ctx := context.Background()
	logger := s.logger

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(s.cfg.Postgres)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	s.pool = pool
	logger.Info("connected to PostgreSQL")

	if err := migration.Apply(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	s.redis = redisClient
	logger.Info("connected to Redis", zap.String("addr", s.cfg.RedisAddr))

	// ----- JWT Manager -----
	jwtManager, err := jwt.LoadAndBuild(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT manager: %w", err)
	}

	// ----- Session Manager & Rate Limiter -----
	sessionManager := session.NewManager(redisClient)
	rateLimiter := session.NewRateLimiter(redisClient)

	clk := clock.SystemClock{Location: s.cfg.Location}

	// ----- Repositories -----
	accountRepo := postgres.NewAccountRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	packRepo := postgres.NewPackRepository(pool)
	eventRepo := postgres.NewEventRepository(pool)

	// ----- Services (Usecases) -----
	authService := authUsecase.NewAuthService(accountRepo, jwtManager, sessionManager, rateLimiter, clk, logger)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(authService, logger)

	projector := schedule.NewProjector(s.cfg.ScheduleInterval, s.cfg.DueHorizon)
	engine := reportsvc.NewEngine(s.cfg.ExpectedCadence, logger)
	snapshotCache := reportsvc.NewRedisSnapshotCache(redisClient, s.cfg.AggregateTTL)

	customerService := customersvc.NewCustomerService(customerRepo, logger)
	packService := packsvc.NewPackService(packRepo, customerRepo, eventRepo, projector, clk, logger)
	reportService := reportsvc.NewReportService(eventRepo, customerRepo, packRepo, engine, snapshotCache, clk, logger)
	eventService := eventsvc.NewEventService(
		eventRepo,
		customerRepo,
		packRepo,
		packService,
		reportService,
		hub,
		clk,
		logger,
	)

	if err := hub.RegisterHandler(wsHandlers.NewActivityHandler(reportService)); err != nil {
		return fmt.Errorf("failed to register websocket handler: %w", err)
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	s.stopHub = stopHub
	go hub.Run(hubCtx)

	// ----- Handlers -----
	handlers := &Handlers{
		AuthHandler:     authHandler.NewAuthHandler(authService, hub, logger),
		CustomerHandler: customerHandler.NewCustomerHandler(customerService, packService),
		PackHandler:     packHandler.NewPackHandler(packService),
		EventHandler:    eventHandler.NewEventHandler(eventService, s.cfg.Location),
		ReportHandler:   reportHandler.NewReportHandler(reportService),
		WSHandler:       wsHandler.NewWebSocketHandler(hub, s.cfg.CORSOrigins, logger),
		AuthMiddleware:  middleware.NewAuthMiddleware(authService, logger),
	}

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)

	// ----- Router -----
	SetupRouter(s.engine, handlers)

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	s.httpServer = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           corsHandler(s.engine),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ----- Start HTTP -----
	logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the hub and the stores.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.stopHub != nil {
		s.stopHub()
	}
	if s.redis != nil {
		if cerr := s.redis.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	_ = s.logger.Sync()
	return err
}
