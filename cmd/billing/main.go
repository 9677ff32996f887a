package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/application/services"
	"github.com/DanielPopoola/ficmart-billing/internal/config"
	"github.com/DanielPopoola/ficmart-billing/internal/domain"
	"github.com/DanielPopoola/ficmart-billing/internal/infrastructure/cache"
	"github.com/DanielPopoola/ficmart-billing/internal/infrastructure/messaging"
	"github.com/DanielPopoola/ficmart-billing/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/ficmart-billing/internal/infrastructure/processor"
	"github.com/DanielPopoola/ficmart-billing/internal/interfaces/ops"
	"github.com/DanielPopoola/ficmart-billing/internal/metrics"
	"github.com/DanielPopoola/ficmart-billing/internal/pricing"
	"github.com/DanielPopoola/ficmart-billing/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting billing service",
		"env", cfg.Primary.Env,
		"log_level", cfg.Logger.Level,
	)
	if cfg.Worker.StuckAfter <= cfg.Processor.Timeout {
		logger.Warn("worker.stuck_after should exceed processor.timeout; in-flight payments may be failed early",
			"stuck_after", cfg.Worker.StuckAfter,
			"processor_timeout", cfg.Processor.Timeout,
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	purchaseRepo := postgres.NewPurchaseRepository(db)

	prices, err := cfg.Pricing.PricingTable()
	if err != nil {
		logger.Error("invalid pricing configuration", "error", err)
		os.Exit(1)
	}
	calculator := pricing.NewCalculator(prices, cfg.TrialTable(), purchaseRepo)

	simulated, err := processor.NewSimulatedProcessor(cfg.Processor, logger)
	if err != nil {
		logger.Error("invalid processor configuration", "error", err)
		os.Exit(1)
	}
	paymentProcessor := processor.NewRetryProcessor(simulated, cfg.Retry, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	billingMetrics := metrics.NewBilling(registry)

	opts := services.Options{
		Metrics:          billingMetrics,
		Clock:            domain.SystemClock{},
		Logger:           logger,
		ProcessorTimeout: cfg.Processor.Timeout,
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		opts.Guard = cache.NewRedisCommandGuard(rdb, logger)
		logger.Info("using redis command guard", "addr", cfg.Redis.Addr)
	} else {
		opts.Guard = postgres.NewCommandGuard(db, logger)
		logger.Info("redis.addr not set; using postgres command guard")
	}

	var (
		conn   *amqp.Connection
		consCh *amqp.Channel
	)
	if cfg.RabbitMQ.URL != "" {
		conn, err = amqp.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		pubCh, err := conn.Channel()
		if err != nil {
			logger.Error("failed to open publish channel", "error", err)
			os.Exit(1)
		}
		if err := messaging.DeclareTopology(pubCh, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.QueuePrefix); err != nil {
			logger.Error("failed to declare rabbitmq topology", "error", err)
			os.Exit(1)
		}
		opts.Publisher = messaging.NewRabbitPublisher(pubCh, cfg.RabbitMQ.Exchange)

		consCh, err = conn.Channel()
		if err != nil {
			logger.Error("failed to open consume channel", "error", err)
			os.Exit(1)
		}
	}

	createService := services.NewCreatePurchaseService(purchaseRepo, calculator, opts)
	processService := services.NewProcessPaymentService(purchaseRepo, paymentProcessor, opts)
	cancelService := services.NewCancelPurchaseService(purchaseRepo, opts)
	refundService := services.NewRefundService(purchaseRepo, paymentProcessor, calculator, opts)

	var router *messaging.Router
	if consCh != nil {
		routerOpts := []messaging.RouterOption{messaging.WithLogger(logger)}
		if cfg.RabbitMQ.Prefetch > 0 {
			routerOpts = append(routerOpts, messaging.WithPrefetch(cfg.RabbitMQ.Prefetch))
		}
		if cfg.RabbitMQ.CallTimeout > 0 {
			routerOpts = append(routerOpts, messaging.WithTimeout(cfg.RabbitMQ.CallTimeout))
		}
		router = messaging.NewRouter(consCh, routerOpts...)

		handlers := messaging.NewCommandHandlers(createService, processService, cancelService, refundService, logger)
		handlers.Register(router, cfg.RabbitMQ.QueuePrefix)

		if err := router.Start(ctx); err != nil {
			logger.Error("failed to start command router", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("rabbitmq.url not set; events are not published and no commands are consumed")
	}

	reconciler := worker.NewReconciler(purchaseRepo, opts.Publisher, billingMetrics, domain.SystemClock{}, cfg.Worker, logger)
	go reconciler.Start(ctx)

	var server *http.Server
	if cfg.Metrics.Addr != "" {
		server = ops.NewServer(cfg.Metrics.Addr, ops.NewHandler(registry, db.Pool, logger))
		go func() {
			logger.Info("ops server starting", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("ops server forced to shutdown", "error", err)
		}
	}

	if router != nil {
		drained := make(chan struct{})
		go func() {
			router.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-shutdownCtx.Done():
			logger.Warn("command consumers did not drain before shutdown deadline")
		}
	}

	logger.Info("billing service exited")
}
