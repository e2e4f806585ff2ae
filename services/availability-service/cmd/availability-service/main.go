package main

import (
	"context"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/apptslots/libs/config"
	"github.com/md-rashed-zaman/apptslots/libs/db"
	"github.com/md-rashed-zaman/apptslots/libs/httpx"
	"github.com/md-rashed-zaman/apptslots/libs/kafkax"
	otelx "github.com/md-rashed-zaman/apptslots/libs/otel"
	"github.com/md-rashed-zaman/apptslots/libs/runtime"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/handlers"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/metrics"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "availability-service")
	port, err := config.Port("PORT", "8086")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLoggerWithLevel(service, config.String("LOG_LEVEL", "info"))

	s, err := loadSettings()
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var (
		rules      availability.RuleStore
		eventTypes storage.EventTypeStore
		checks     []runtime.ReadyCheck
	)
	if s.RulesFile != "" {
		yamlStore, err := storage.LoadYAMLStore(s.RulesFile)
		if err != nil {
			logger.Error("rules file load failed", "err", err, "path", s.RulesFile)
			os.Exit(1)
		}
		rules, eventTypes = yamlStore, yamlStore
		logger.Info("serving rules from file", "path", s.RulesFile)
	} else {
		pool, err := db.Open(ctx, s.DatabaseURL, db.Options{StatementTimeout: 2 * time.Second})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		pgStore := storage.NewPostgresStore(pool)
		rules, eventTypes = pgStore, pgStore
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	}

	var limiter httpx.Limiter = httpx.NewMemoryLimiter(s.RateLimit, time.Minute)
	if s.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: s.RedisAddr, Password: s.RedisPassword})
		defer func() { _ = rdb.Close() }()
		cached := storage.NewCachedStore(rules, rdb, s.SnapshotTTL, logger)
		rules = cached
		limiter = httpx.NewRedisLimiter(rdb, s.RateLimit, time.Minute, service)
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: cached.Ping, Optional: true})
	}
	if s.KafkaBrokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(s.KafkaBrokers), Optional: true})
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("availability", reg)

	svc := availability.NewService(
		availability.NewEngine(rules, s.Engine),
		availability.NewMonitor(availability.MonitorConfig{
			SlowThreshold: s.SlowThreshold,
			Logger:        logger,
			Recorder:      m,
		}),
	)
	slotsHandler := handlers.NewSlotsHandler(svc, eventTypes, logger)

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/api/v1/public/slots", httpx.Chain(http.HandlerFunc(slotsHandler.Slots),
		httpx.WithCORS(httpx.PublicReadCORS(s.CORSOrigins)),
		httpx.AllowMethods(http.MethodGet),
		httpx.RateLimit(limiter, logger, s.RateLimitFailOpen),
		httpx.WithTimeout(s.RequestTimeout),
	))
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "availability")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := startGrpcServer(ctx, logger, service); err != nil {
		logger.Error("grpc server start failed", "err", err)
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr,
			"ambiguous_policy", s.Engine.Policy.Ambiguous.String(),
			"gap_policy", s.Engine.Policy.Gap.String(),
			"slow_threshold_ms", s.SlowThreshold.Milliseconds(),
		)
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
