package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/museum-booking/internal/booking"
	"github.com/iliyamo/museum-booking/internal/cache"
	"github.com/iliyamo/museum-booking/internal/config"
	"github.com/iliyamo/museum-booking/internal/database"
	"github.com/iliyamo/museum-booking/internal/handler"
	"github.com/iliyamo/museum-booking/internal/logger"
	"github.com/iliyamo/museum-booking/internal/middleware"
	"github.com/iliyamo/museum-booking/internal/publisher"
	"github.com/iliyamo/museum-booking/internal/queue"
	"github.com/iliyamo/museum-booking/internal/repository"
	"github.com/iliyamo/museum-booking/internal/router"
	"github.com/iliyamo/museum-booking/internal/tracing"
)

const serviceName = "museum-booking"

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: serviceName})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if shutdown := tracing.Init(serviceName); shutdown != nil {
		defer shutdown()
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("database open failed", "error", err)
	}
	defer db.Close()
	if cfg.AutoMigrate {
		mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := database.Migrate(mctx, db)
		cancel()
		if err != nil {
			log.Fatal("migration failed", "error", err)
		}
		log.Info("schema migrated")
	}

	// A nil *redis.Client must not reach the constructors as a non-nil
	// redis.Cmdable, so rdb stays an untyped nil when Redis is down.
	var rdb redis.Cmdable
	if client := config.NewRedisClient(cfg.Redis); client != nil {
		defer client.Close()
		rdb = client
	} else {
		log.Warn("redis unavailable; caching and rate limiting disabled", "addr", cfg.Redis.Addr)
	}

	events := publisher.New(cfg.Events, log)
	defer events.Close()

	store := repository.NewBookingStore(db)
	opts := []booking.Option{booking.WithPublisher(events)}
	if rdb != nil {
		opts = append(opts, booking.WithCache(cache.NewAvailability(rdb, cfg.Cache, log)))
	}
	svc := booking.NewService(store, cfg.Booking, log, opts...)
	admin := booking.NewAdminService(store, cfg.Booking, log, booking.WithBcryptCost(cfg.BcryptCost))

	respCache := middleware.NewResponseCache(cfg.Cache, rdb, log)
	generalLimit := middleware.NewTokenBucket(cfg.RateLimit, rdb, log)
	bookingLimit := middleware.NewTokenBucket(cfg.RateLimit.WithCapacity(cfg.RateLimit.BookingCapacity, "rl:booking"), rdb, log)

	users := repository.NewUserRepo(db)
	authH := handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db), repository.NewVisitorRepo(db), log)
	catalogH := handler.NewCatalogHandler(repository.NewCatalogRepo(db), svc, cfg.Booking.MinChargeLevel, log)
	bookingH := handler.NewBookingHandler(svc)
	adminH := handler.NewAdminHandler(admin, respCache, log)

	e := echo.New()
	router.Setup(e, log)
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, authH, cfg.JWTSecret, generalLimit)
	router.RegisterPublic(e, catalogH, respCache, generalLimit)
	router.RegisterBookings(e, bookingH, cfg.JWTSecret, bookingLimit)
	router.RegisterAdmin(e, adminH, cfg.JWTSecret)

	if cfg.Events.ConsumerEnabled && cfg.Events.Driver == config.EventsRabbitMQ {
		consumer := &queue.Consumer{URL: cfg.Events.AMQPURL, LogDir: cfg.Events.ConsumerLogDir, Log: log}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("booking consumer stopped", "error", err)
			}
		}()
	}

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
