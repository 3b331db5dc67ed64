package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appOrder "github.com/refurbly/storefront/internal/application/order"
	appPayment "github.com/refurbly/storefront/internal/application/payment"
	"github.com/refurbly/storefront/internal/config"
	"github.com/refurbly/storefront/internal/infrastructure/bus"
	"github.com/refurbly/storefront/internal/infrastructure/id"
	mongostore "github.com/refurbly/storefront/internal/infrastructure/mongo"
	"github.com/refurbly/storefront/internal/infrastructure/notification"
	"github.com/refurbly/storefront/internal/infrastructure/stripe"
	"github.com/refurbly/storefront/internal/pkg/logging"
	httppresentation "github.com/refurbly/storefront/internal/presentation/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	baseLogger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)
	log := baseLogger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := mongostore.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	connectCancel()
	if err != nil {
		log.Fatalw("mongo_connect_failed", "error", err)
	}
	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		log.Fatalw("mongo_index_failed", "error", err)
	}

	orderRepo := mongostore.NewOrderRepository(db)
	catalogRepo := mongostore.NewCatalogRepository(db)

	gateway := stripe.NewClient(stripe.Config{
		APIKey:        cfg.ProviderAPIKey,
		WebhookSecret: cfg.ProviderWebhookSecret,
		BaseURL:       cfg.ProviderBaseURL,
		Timeout:       cfg.ProviderTimeout,
	})

	eventBus := bus.New(log)
	eventBus.Start(context.Background())
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		eventBus.Stop(stopCtx)
	}()

	mailWorker := notification.NewWorker(notification.NewLogMailer(log), log)
	mailWorker.Register(eventBus)

	orderService := appOrder.NewService(orderRepo, catalogRepo, cfg.Pricing, id.NewUUIDGenerator(), eventBus)
	paymentService := appPayment.NewService(orderRepo, gateway, eventBus)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := httppresentation.NewMetrics(registry)

	handler := httppresentation.NewHandler(orderService, paymentService, metrics, log)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		log.Infow("http_server_start", "addr", server.Addr)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("http_server_error", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("http_server_shutdown_error", "error", err)
	} else {
		log.Infow("http_server_stopped")
	}
}
