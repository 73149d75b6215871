package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/Freeeeeet/academy_portal/internal/config"
	"github.com/Freeeeeet/academy_portal/internal/controller"
	"github.com/Freeeeeet/academy_portal/internal/controller/handlers"
	"github.com/Freeeeeet/academy_portal/internal/events"
	"github.com/Freeeeeet/academy_portal/internal/lock"
	"github.com/Freeeeeet/academy_portal/internal/notify"
	"github.com/Freeeeeet/academy_portal/internal/payment"
	"github.com/Freeeeeet/academy_portal/internal/repository"
	"github.com/Freeeeeet/academy_portal/internal/repository/base"
	"github.com/Freeeeeet/academy_portal/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App держит все зависимости сервиса и управляет их жизненным циклом
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	pool      *pgxpool.Pool
	server    *http.Server
	scheduler *Scheduler
	closers   []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// New подключается к БД, применяет миграции и собирает сервисы и роутер
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	loc, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load academy timezone %q: %w", cfg.Booking.Timezone, err)
	}

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("✅ Connected to database")

	a := &App{cfg: cfg, logger: logger, pool: pool}

	if cfg.RunMigrations {
		if err := a.migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	publisher, notifier, locker, gateway, err := a.adapters()
	if err != nil {
		a.Close()
		return nil, err
	}

	txManager := base.NewTxManager(pool)
	slotRepo := repository.NewSlotRepository(pool)
	consultationRepo := repository.NewConsultationRepository(pool)
	leadRepo := repository.NewLeadRepository(pool)
	enrolmentRepo := repository.NewEnrolmentRepository(pool)

	validator := service.NewValidator()
	dispatcher := service.NewDispatcher(publisher, notifier, logger)

	slotService := service.NewSlotService(slotRepo, validator, loc, cfg.Booking.SlotListLimit, logger)
	bookingService := service.NewBookingService(txManager, slotRepo, consultationRepo, leadRepo, validator, dispatcher, loc, logger).
		WithSlotLock(locker, cfg.Redis.SlotLockTTL)
	leadService := service.NewLeadService(leadRepo, consultationRepo, validator, logger)
	enrolmentService := service.NewEnrolmentService(
		txManager,
		enrolmentRepo,
		leadRepo,
		validator,
		dispatcher,
		cfg.Booking.PublicBaseURL,
		cfg.Booking.TokenTTL,
		cfg.Booking.TokenRetention,
		logger,
	)
	if gateway != nil {
		enrolmentService.WithCheckout(gateway)
	}

	h := handlers.NewHandlers(slotService, bookingService, leadService, enrolmentService, logger)
	router := controller.NewRouter(h, cfg.AdminAPIKeyHash, cfg.HTTPServer.Timeout, logger)

	a.server = &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout + time.Second,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}
	a.scheduler = NewScheduler(enrolmentService, cfg.Booking.TokenSweepInterval, logger)

	return a, nil
}

func (a *App) migrate(ctx context.Context) error {
	migrator, err := NewMigrator(a.pool, a.logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// adapters поднимает необязательные внешние зависимости; без настроек используются заглушки
func (a *App) adapters() (events.Publisher, notify.Notifier, lock.Locker, payment.Gateway, error) {
	var (
		publisher events.Publisher = events.Nop{}
		notifier  notify.Notifier  = notify.Nop{}
		locker    lock.Locker      = lock.Nop{}
		gateway   payment.Gateway
	)

	if a.cfg.Redis.Addr != "" {
		redisLock, err := lock.NewRedisLock(a.cfg.Redis.Addr)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("init redis lock: %w", err)
		}
		locker = redisLock
		a.closers = append(a.closers, namedCloser{"redis", redisLock})
		a.logger.Info("Slot lock enabled", zap.String("redis_addr", a.cfg.Redis.Addr))
	}

	if len(a.cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := events.NewKafkaPublisher(a.cfg.Kafka.Brokers, a.cfg.Kafka.Topic)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("init kafka publisher: %w", err)
		}
		publisher = kafkaPublisher
		a.closers = append(a.closers, namedCloser{"kafka", kafkaPublisher})
		a.logger.Info("Event publishing enabled",
			zap.Strings("brokers", a.cfg.Kafka.Brokers),
			zap.String("topic", a.cfg.Kafka.Topic),
		)
	}

	if a.cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegramNotifier(a.cfg.Telegram.Token, a.cfg.Telegram.AdminChatID)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("init telegram notifier: %w", err)
		}
		notifier = tg
		a.logger.Info("Admin notifications enabled", zap.Int64("chat_id", a.cfg.Telegram.AdminChatID))
	}

	if a.cfg.Payments.CheckoutURL != "" {
		gateway = payment.NewHTTPGateway(a.cfg.Payments.CheckoutURL, a.cfg.Payments.APIKey)
		a.logger.Info("Checkout enabled")
	}

	return publisher, notifier, locker, gateway, nil
}

// Run обслуживает HTTP до отмены ctx, затем корректно останавливается
func (a *App) Run(ctx context.Context) error {
	a.scheduler.Start(ctx)
	defer a.scheduler.Stop()

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Shutting down HTTP server", zap.Duration("timeout", a.cfg.HTTPServer.ShutdownTimeout))
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	a.logger.Info("HTTP server stopped")
	return nil
}

// Close освобождает внешние ресурсы в обратном порядке
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.c.Close(); err != nil {
			a.logger.Error("Failed to close "+c.name, zap.Error(err))
		}
	}

	if a.pool != nil {
		a.pool.Close()
		a.logger.Info("Database pool closed")
	}
}
