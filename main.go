package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/coachhub/scheduler/config"
	"github.com/coachhub/scheduler/internal/audit"
	"github.com/coachhub/scheduler/internal/consumer"
	"github.com/coachhub/scheduler/internal/handler"
	"github.com/coachhub/scheduler/internal/metrics"
	"github.com/coachhub/scheduler/internal/middleware"
	"github.com/coachhub/scheduler/internal/repository"
	"github.com/coachhub/scheduler/internal/schedule"
	"github.com/coachhub/scheduler/internal/service"
	"github.com/coachhub/scheduler/pkg/database"
	"github.com/coachhub/scheduler/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.Environment)
	defer logger.Sync()

	db, err := database.NewPostgresDB(cfg.DSN())
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}

	// Repositories
	classRepo := repository.NewClassRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	centerRepo := repository.NewCenterRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)

	// Holiday registry preload for the configured window
	ctx := context.Background()
	now := time.Now()
	holidays, err := holidayRepo.FindByCountryAndRange(ctx, cfg.OrgCountry,
		now.AddDate(0, 0, -7), now.AddDate(0, 0, cfg.HolidayWindowDays))
	if err != nil {
		logger.Fatal("failed to load holidays", zap.Error(err))
	}
	registry := schedule.NewHolidayRegistry(holidays)
	expander := schedule.NewExpander(registry,
		schedule.HolidayPolicy(cfg.HolidayPolicy), cfg.OrgCountry, cfg.OrgState)
	logger.Info("holiday registry loaded", zap.Int("dates", registry.Len()))

	calendar := schedule.NewCalendar()

	// RabbitMQ: audit publishing and the holiday feed. Optional; without a
	// broker the engine runs with audit disabled.
	var emitter audit.Emitter = audit.NopEmitter{}
	if cfg.RabbitURL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
		if err != nil {
			logger.Warn("rabbitmq unavailable, audit disabled", zap.Error(err))
		} else {
			defer publisher.Close()
			emitter = audit.NewEmitter(publisher, logger)
		}

		mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, rabbitmq.HolidayQueue, rabbitmq.HolidayRoutingKey)
		if err != nil {
			logger.Warn("rabbitmq unavailable, holiday feed disabled", zap.Error(err))
		} else {
			defer mqConsumer.Close()
			msgs, err := mqConsumer.Consume()
			if err != nil {
				logger.Fatal("failed to start consuming holiday feed", zap.Error(err))
			}
			consumer.NewHolidayConsumer(holidayRepo, registry, logger).Start(msgs)
		}
	}

	// Services
	retryConf := service.RetryConfig{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay}
	locale := service.Locale{Country: cfg.OrgCountry, State: cfg.OrgState}
	policy := service.BookingPolicy{AllowUnpaidNonRegular: cfg.AllowUnpaidNonRegular}

	bookingSvc := service.NewBookingService(bookingRepo, classRepo, nil, policy, retryConf, emitter, logger)
	classSvc := service.NewClassService(classRepo, bookingRepo, centerRepo, groupRepo,
		calendar, registry, expander, locale, retryConf, emitter, logger)
	groupSvc := service.NewGroupService(groupRepo, retryConf, emitter, logger)

	if err := classSvc.RebuildCalendar(ctx); err != nil {
		logger.Fatal("failed to rebuild calendar index", zap.Error(err))
	}

	metrics.Register()

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
			)
			return nil
		},
	}))
	e.Use(echoMw.Recover())
	e.Use(middleware.Actor())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "scheduler"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	handler.NewClassHandler(classSvc).RegisterRoutes(e)
	handler.NewBookingHandler(bookingSvc).RegisterRoutes(e)
	handler.NewGroupHandler(groupSvc, classSvc).RegisterRoutes(e)

	logger.Info("scheduler starting", zap.String("port", cfg.ServerPort))
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}

func newLogger(env string) *zap.Logger {
	if env == "production" {
		logger, err := zap.NewProduction()
		if err != nil {
			log.Fatalf("failed to build logger: %v", err)
		}
		return logger
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	return logger
}
