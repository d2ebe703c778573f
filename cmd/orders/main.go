package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/storefront-labs/order-service/internal/clients"
	"github.com/storefront-labs/order-service/internal/domain"
	"github.com/storefront-labs/order-service/internal/messaging"
	"github.com/storefront-labs/order-service/internal/orders"
	"github.com/storefront-labs/order-service/internal/resilience"
	"github.com/storefront-labs/order-service/internal/telemetry"
)

const (
	serviceName    = "orders"
	serviceVersion = "0.1.0"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var publisher orders.EventPublisher
	if kafkaBrokers := os.Getenv("KAFKA_BROKERS"); kafkaBrokers != "" {
		topic := envOr("ORDER_EVENTS_TOPIC", "order.placed")
		producer := messaging.NewProducer(strings.Split(kafkaBrokers, ","), topic, logger)
		defer func() { _ = producer.Close() }()
		publisher = producer
	}

	productURL := requireEnv("PRODUCT_SERVICE_URL", logger)
	customerURL := requireEnv("CUSTOMER_SERVICE_URL", logger)
	inventoryURL := requireEnv("INVENTORY_SERVICE_URL", logger)

	httpClient := &http.Client{
		Timeout:   envDuration("DOWNSTREAM_HTTP_TIMEOUT", 10*time.Second, logger),
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	policy := resilience.New[*domain.Order](resilience.Config{
		Name:             "orderService",
		AttemptTimeout:   envDuration("PLACEMENT_ATTEMPT_TIMEOUT", 3*time.Second, logger),
		MaxAttempts:      uint64(envInt("PLACEMENT_MAX_ATTEMPTS", 3, logger)),
		InitialBackoff:   envDuration("PLACEMENT_INITIAL_BACKOFF", 200*time.Millisecond, logger),
		MaxBackoff:       envDuration("PLACEMENT_MAX_BACKOFF", 2*time.Second, logger),
		FailureThreshold: uint32(envInt("CIRCUIT_FAILURE_THRESHOLD", 5, logger)),
		OpenTimeout:      envDuration("CIRCUIT_OPEN_TIMEOUT", 30*time.Second, logger),
		HalfOpenMaxCalls: uint32(envInt("CIRCUIT_HALF_OPEN_CALLS", 1, logger)),
		IsPermanent:      orders.IsBusinessRejection,
	}, logger)

	metrics, err := orders.NewMetrics()
	if err != nil {
		logger.Error("failed to create metrics", "error", err)
		os.Exit(1)
	}

	repo := orders.NewOrderRepository(db)
	service := orders.NewService(
		repo,
		clients.NewProductClient(productURL, httpClient),
		clients.NewCustomerClient(customerURL, httpClient),
		clients.NewInventoryClient(inventoryURL, httpClient),
		publisher,
		policy,
		metrics,
		logger,
	)
	handler := orders.NewHandler(service, repo, logger)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(handler.HandlePlace))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(handler.HandleList))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(handler.HandleGet))
	mux.HandleFunc("GET /orders/number/{orderNumber}", telemetry.WithHTTPRoute(handler.HandleGetByNumber))
	mux.HandleFunc("PUT /orders/{id}", telemetry.WithHTTPRoute(handler.HandleUpdate))
	mux.HandleFunc("DELETE /orders/{id}", telemetry.WithHTTPRoute(handler.HandleDelete))

	port := envOr("PORT", "8081")

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, serviceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("starting orders service", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func requireEnv(key string, logger *slog.Logger) string {
	v := os.Getenv(key)
	if v == "" {
		logger.Error(key + " environment variable is required")
		os.Exit(1)
	}
	return v
}

func envDuration(key string, fallback time.Duration, logger *slog.Logger) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Error("invalid duration", "key", key, "value", v, "error", err)
		os.Exit(1)
	}
	return d
}

func envInt(key string, fallback int, logger *slog.Logger) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Error("invalid integer", "key", key, "value", v, "error", err)
		os.Exit(1)
	}
	return n
}
