package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/barberbook/barberbook/internal/handlers"
	"github.com/barberbook/barberbook/internal/outbox"
	"github.com/barberbook/barberbook/internal/service"
	"github.com/barberbook/barberbook/internal/storage"
	"github.com/barberbook/barberbook/libs/config"
	"github.com/barberbook/barberbook/libs/db"
	"github.com/barberbook/barberbook/libs/httpx"
	"github.com/barberbook/barberbook/libs/kafkax"
	otelx "github.com/barberbook/barberbook/libs/otel"
	"github.com/barberbook/barberbook/libs/runtime"
)

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func main() {
	serviceName := config.String("SERVICE_NAME", "barberbookd")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(serviceName)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(serviceName))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	bookingRepo := storage.NewBookingRepository(pool, outboxRepo)
	businessRepo := storage.NewBusinessRepository(pool)

	bookingCfg := config.BookingFromEnv()
	availabilitySvc := service.NewAvailabilityService(bookingRepo, time.Now, bookingCfg)
	lifecycleSvc := service.NewLifecycleService(bookingRepo, businessRepo, time.Now, bookingCfg)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	bookingHandler := handlers.NewBookingHandler(availabilitySvc, lifecycleSvc, bookingRepo, businessRepo, logger)
	businessHandler := handlers.NewBusinessHandler(businessRepo, logger)
	stripeHandler := handlers.NewStripeWebhookHandler(
		businessRepo,
		logger,
		config.String("STRIPE_WEBHOOK_SECRET", ""),
		time.Duration(config.Int("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300))*time.Second,
	)

	// Public traffic is rate limited per client ip. Redis keeps the counters
	// shared across replicas; without Redis an in-process limiter still caps
	// a single instance.
	publicLimit := config.Int("PUBLIC_RATE_LIMIT", 120)
	var limit httpx.Middleware
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer func() { _ = rdb.Close() }()
		limit = httpx.NewRedisRateLimiter(rdb, publicLimit, time.Minute, serviceName).Middleware(logger, true)
	} else {
		limit = httpx.NewRateLimiter(publicLimit, time.Minute).Middleware()
	}
	limited := func(h http.Handler) http.Handler { return limit(h) }
	authed := func(h http.HandlerFunc) http.Handler { return handlers.RequireAuth(h, jwtSecret) }
	owner := func(h http.HandlerFunc) http.Handler {
		return handlers.RequireAuth(handlers.RequireRole(h, handlers.RoleOwner), jwtSecret)
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.Handle("/api/v1/public/slots", limited(http.HandlerFunc(bookingHandler.Slots)))
	mux.Handle("/api/v1/public/services", limited(http.HandlerFunc(businessHandler.PublicServices)))
	mux.Handle("/api/v1/public/barbers", limited(http.HandlerFunc(businessHandler.PublicBarbers)))
	mux.Handle("/api/v1/public/book", limited(authed(bookingHandler.Create)))
	mux.Handle("/api/v1/bookings", authed(bookingHandler.ListMine))
	mux.Handle("/api/v1/bookings/cancel", authed(bookingHandler.Cancel))
	mux.Handle("/api/v1/owner/bookings/confirm", owner(bookingHandler.Confirm))
	mux.Handle("/api/v1/owner/bookings/complete", owner(bookingHandler.Complete))
	mux.Handle("/api/v1/owner/agenda", owner(bookingHandler.DayAgenda))
	mux.Handle("/api/v1/owner/profile", owner(businessHandler.Profile))
	mux.Handle("/api/v1/owner/schedule", owner(businessHandler.Schedule))
	mux.Handle("/api/v1/owner/barbers", owner(businessHandler.Barbers))
	mux.Handle("/api/v1/owner/services", owner(businessHandler.Services))
	mux.Handle("/api/v1/billing/webhooks/stripe", stripeHandler)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(30*time.Second),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: splitList(config.String("ALLOWED_ORIGINS", "")),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "Idempotency-Key"},
			MaxAge:         10 * time.Minute,
		}),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "barberbook")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
