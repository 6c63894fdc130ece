// Package service assembles the booking server from configuration and
// runs its long-lived parts until shutdown.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinema-seat-booking/internal/booking"
	"github.com/iliyamo/cinema-seat-booking/internal/config"
	"github.com/iliyamo/cinema-seat-booking/internal/database"
	"github.com/iliyamo/cinema-seat-booking/internal/handler"
	"github.com/iliyamo/cinema-seat-booking/internal/notify"
	"github.com/iliyamo/cinema-seat-booking/internal/queue"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
	"github.com/iliyamo/cinema-seat-booking/internal/router"
)

// Service owns every resource of a running server.
type Service struct {
	cfg        config.Config
	logger     logrus.FieldLogger
	db         *sqlx.DB
	redis      *redis.Client
	dispatcher *notify.Dispatcher
	consumer   *queue.Consumer
	http       *echo.Echo
}

// New connects to storage, migrates the schema and wires the booking
// manager, notifications and HTTP routes.
func New(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (*Service, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	store := repository.NewStore(db)

	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		Workers:     cfg.Notify.Workers,
		QueueSize:   cfg.Notify.QueueSize,
		TaskTimeout: cfg.Notify.DialTimeout + cfg.Notify.WriteTimeout,
	}, logger.WithField("component", "dispatcher"))
	emitter := notify.NewEmitter(notify.EmitterConfig{
		Addr:         cfg.Notify.Addr,
		DialTimeout:  cfg.Notify.DialTimeout,
		WriteTimeout: cfg.Notify.WriteTimeout,
	}, dispatcher, logger)

	opts := []booking.Option{booking.WithTimeout(cfg.BookingTimeout)}
	var consumer *queue.Consumer
	if cfg.RabbitURL != "" {
		pub := queue.NewPublisher(cfg.RabbitURL, logger)
		opts = append(opts, booking.WithConfirmationPublisher(queue.NewAsyncPublisher(pub, dispatcher)))
		consumer = queue.NewConsumer(queue.ConsumerConfig{URL: cfg.RabbitURL, LogPath: cfg.BookingLogPath}, logger)
	}
	manager := booking.NewManager(store, emitter, logger.WithField("component", "booking"), opts...)

	rdb := config.NewRedisClient(config.LoadRedisConfig(), logger)
	e := router.New(router.Deps{
		Bookings:  handler.NewBookingHandler(manager, store.Seats, logger),
		DB:        db,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Logger:    logger,
	})

	return &Service{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		redis:      rdb,
		dispatcher: dispatcher,
		consumer:   consumer,
		http:       e,
	}, nil
}

// Run serves HTTP, delivers notifications and, when configured, consumes
// booking confirmations until ctx is done.  In-flight deliveries are
// drained before it returns.
func (s *Service) Run(ctx context.Context) error {
	defer s.close()
	g, runCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.dispatcher.Run(runCtx); err != nil {
			return fmt.Errorf("running dispatcher: %w", err)
		}
		return nil
	})

	if s.consumer != nil {
		g.Go(func() error {
			if err := s.consumer.Run(runCtx); err != nil {
				return fmt.Errorf("running booking consumer: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		addr := ":" + s.cfg.Port
		s.logger.WithFields(logrus.Fields{"addr": addr, "env": s.cfg.Env}).Info("starting HTTP server")
		if err := s.http.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("starting http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down HTTP server")
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("waiting for shutdown: %w", err)
	}
	s.logger.Info("shutdown complete")
	return nil
}

func (s *Service) close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if err := s.db.Close(); err != nil {
		s.logger.WithError(err).Warn("closing database")
	}
}
