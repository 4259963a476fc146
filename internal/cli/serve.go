package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ignatzorin/offer-escrow/internal/config"
	"github.com/ignatzorin/offer-escrow/internal/db"
	"github.com/ignatzorin/offer-escrow/internal/gateway"
	"github.com/ignatzorin/offer-escrow/internal/goroutine"
	httpHandlers "github.com/ignatzorin/offer-escrow/internal/http/handlers"
	httpRouter "github.com/ignatzorin/offer-escrow/internal/http/router"
	"github.com/ignatzorin/offer-escrow/internal/logger"
	"github.com/ignatzorin/offer-escrow/internal/repository"
	"github.com/ignatzorin/offer-escrow/internal/service"
	"github.com/ignatzorin/offer-escrow/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("skip-migrations", false, "Не применять миграции при старте")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить HTTP сервер",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("serve: подключение к базе: %w", err)
	}
	defer safeClose(dbConn)

	if skip, _ := cmd.Flags().GetBool("skip-migrations"); !skip {
		if err := db.MigrateUp(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("serve: миграции: %w", err)
		}
	}

	engine := buildApp(ctx, cfg, dbConn)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("HTTP server shutdown failed")
		}
	})

	logger.Log.WithFields(logrus.Fields{
		"port":    cfg.HTTPPort,
		"env":     cfg.Env,
		"gateway": cfg.GatewayConfigured(),
	}).Info("HTTP server started")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Log.Info("HTTP server stopped")
	return nil
}

// buildApp связывает репозитории, сервисы и хэндлеры.
func buildApp(ctx context.Context, cfg *config.Config, dbConn *sqlx.DB) http.Handler {
	tokens := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	offerRepo := repository.NewOfferRepository(dbConn)
	escrowRepo := repository.NewEscrowRepository(dbConn)
	postingRepo := repository.NewPostingRepository(dbConn)
	ledgerRepo := repository.NewProviderLedgerRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Без ключа шлюз остаётся nil-интерфейсом, доступна только офлайн-оплата.
	var paymentGateway service.PaymentGateway
	if cfg.GatewayConfigured() {
		paymentGateway = gateway.NewStripeGateway(cfg.StripeSecretKey, cfg.GatewayTimeout)
	}

	hub := ws.NewHub(ctx)
	goroutine.SafeGo(hub.Run)

	locks := service.NewOfferLocks()
	notifications := service.NewNotificationService(notificationRepo, hub)
	escrowService := service.NewEscrowService(offerRepo, escrowRepo, ledgerRepo, paymentGateway, notifications, locks, cfg.PaymentCurrency)
	offerService := service.NewOfferService(offerRepo, postingRepo, ledgerRepo, escrowService, notifications, locks)
	deliveryService := service.NewDeliveryService(offerRepo, postingRepo, ledgerRepo, escrowService, notifications, locks)
	cleanupService := service.NewCleanupService(offerRepo, postingRepo, ledgerRepo, escrowService, notifications, locks)

	handlers := httpRouter.Handlers{
		Offers:        httpHandlers.NewOfferHandler(offerService),
		Escrow:        httpHandlers.NewEscrowHandler(escrowService),
		Delivery:      httpHandlers.NewDeliveryHandler(deliveryService),
		Postings:      httpHandlers.NewPostingHandler(cleanupService),
		Notifications: httpHandlers.NewNotificationHandler(notifications),
		Health:        httpHandlers.NewHealthHandler(dbConn, escrowService.GatewayConfigured()),
		WS:            httpHandlers.NewWSHandler(hub, tokens, cfg.AllowedOrigins),
	}

	return httpRouter.SetupRouter(cfg, handlers, tokens)
}

// safeClose закрывает соединение с базой.
func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		logger.Log.WithError(err).Warn("Database close failed")
	}
}
