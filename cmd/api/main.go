package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/academy-reconcile-api/internal/config"
	"github.com/noah-isme/academy-reconcile-api/internal/database"
	"github.com/noah-isme/academy-reconcile-api/internal/events"
	"github.com/noah-isme/academy-reconcile-api/internal/handler"
	"github.com/noah-isme/academy-reconcile-api/internal/middleware"
	"github.com/noah-isme/academy-reconcile-api/internal/repository"
	"github.com/noah-isme/academy-reconcile-api/internal/router"
	"github.com/noah-isme/academy-reconcile-api/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	probes := []handler.HealthProbe{{
		Name: "postgres",
		Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, caching and distributed locks disabled")
			redisClient = nil
		} else {
			defer redisClient.Close()
			probes = append(probes, handler.HealthProbe{
				Name:  "redis",
				Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
			})
		}
	}

	publisher := events.NewNopPublisher()
	if cfg.NATSURL != "" {
		conn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, domain events disabled")
		} else {
			defer conn.Drain()
			publisher = events.NewNATSPublisher(conn, cfg.EventSubjectPrefix, logger)
			probes = append(probes, handler.HealthProbe{
				Name: "nats",
				Check: func(context.Context) error {
					if conn.Status() != nats.CONNECTED {
						return nats.ErrConnectionClosed
					}
					return nil
				},
			})
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	clock := service.ClockConfig{StoreTimeout: cfg.StoreTimeout, Location: cfg.Location}

	studentRepo := repository.NewStudentRepository(db)
	classRepo := repository.NewClassRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	seatReleaseRepo := repository.NewSeatReleaseRepository(db)
	recoveryRepo := repository.NewRecoveryRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	transactor := repository.NewTransactor(db)

	var locker service.Locker = service.NewLocalLocker()
	if redisClient != nil {
		locker = service.NewRedisLocker(redisClient, cfg.RemediationLockTTL)
	}

	reconciliationService := service.NewCachedReconciliationService(
		service.NewReconciliationService(service.ReconciliationStores{
			Students:     studentRepo,
			Classes:      classRepo,
			Assignments:  assignmentRepo,
			Payments:     paymentRepo,
			Attendance:   attendanceRepo,
			SeatReleases: seatReleaseRepo,
			Recoveries:   recoveryRepo,
		}, clock, logger),
		redisClient, cfg.DashboardCacheTTL, clock, logger,
	)
	activityService := service.NewActivityService(activityRepo, logger)
	remediationService := service.NewDebtRemediationService(service.RemediationDeps{
		Students:     studentRepo,
		Classes:      classRepo,
		Assignments:  assignmentRepo,
		SeatReleases: seatReleaseRepo,
		Store:        transactor,
		Locker:       locker,
		Cache:        reconciliationService,
		Activity:     activityService,
		Events:       publisher,
	}, clock, logger)
	attendanceService := service.NewAttendanceService(service.AttendanceDeps{
		Students: studentRepo,
		Classes:  classRepo,
		Store:    transactor,
		Cache:    reconciliationService,
	}, validate, clock, logger)
	recoveryService := service.NewRecoveryService(recoveryRepo, activityService, publisher, reconciliationService, validate, clock, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.AllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		ReconciliationHandler: handler.NewReconciliationHandler(reconciliationService, logger),
		RemediationHandler:    handler.NewRemediationHandler(remediationService, validate, logger),
		AttendanceHandler:     handler.NewAttendanceHandler(attendanceService, recoveryService, logger),
		ActivityHandler:       handler.NewActivityHandler(activityService, logger),
		HealthProbes:          probes,
		JWTMiddleware:         middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
