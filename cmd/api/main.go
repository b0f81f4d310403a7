package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dishpatch/merchant-backend/api/routes"
	"github.com/dishpatch/merchant-backend/internal/auth"
	"github.com/dishpatch/merchant-backend/internal/bankverification"
	"github.com/dishpatch/merchant-backend/internal/documents"
	"github.com/dishpatch/merchant-backend/internal/memberships"
	"github.com/dishpatch/merchant-backend/internal/menu"
	"github.com/dishpatch/merchant-backend/internal/notifications"
	"github.com/dishpatch/merchant-backend/internal/orders"
	"github.com/dishpatch/merchant-backend/internal/otp"
	"github.com/dishpatch/merchant-backend/internal/payouts"
	"github.com/dishpatch/merchant-backend/internal/stores"
	"github.com/dishpatch/merchant-backend/internal/subscriptions"
	"github.com/dishpatch/merchant-backend/internal/tickets"
	"github.com/dishpatch/merchant-backend/internal/users"
	"github.com/dishpatch/merchant-backend/internal/wallet"
	"github.com/dishpatch/merchant-backend/internal/webhooks"
	"github.com/dishpatch/merchant-backend/pkg/auth/session"
	"github.com/dishpatch/merchant-backend/pkg/bigquery"
	"github.com/dishpatch/merchant-backend/pkg/config"
	"github.com/dishpatch/merchant-backend/pkg/db"
	"github.com/dishpatch/merchant-backend/pkg/logger"
	"github.com/dishpatch/merchant-backend/pkg/migrate"
	"github.com/dishpatch/merchant-backend/pkg/outbox"
	"github.com/dishpatch/merchant-backend/pkg/razorpay"
	"github.com/dishpatch/merchant-backend/pkg/redis"
	"github.com/dishpatch/merchant-backend/pkg/storage/r2"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	storageClient, err := r2.NewClient(ctx, cfg.R2, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap object storage", err)
		os.Exit(1)
	}

	bigqueryClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap bigquery", err)
		os.Exit(1)
	}

	razorpayClient, err := razorpay.NewClient(ctx, cfg.Razorpay, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap razorpay", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	gorm := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gorm), logg)

	userRepo := users.NewRepository(gorm)
	membershipRepo := memberships.NewRepository(gorm)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:        userRepo,
		MembershipsRepo: membershipRepo,
		SessionManager:  sessionManager,
		JWTConfig:       cfg.JWT,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(ctx, "failed to create register service", err)
		os.Exit(1)
	}

	switchService, err := auth.NewSwitchStoreService(auth.SwitchStoreServiceParams{
		MembershipsRepo: membershipRepo,
		SessionManager:  sessionManager,
		JWTConfig:       cfg.JWT,
	})
	if err != nil {
		logg.Error(ctx, "failed to create switch-store service", err)
		os.Exit(1)
	}

	storeService, err := stores.NewService(stores.NewRepository(gorm), membershipRepo, userRepo, dbClient, outboxSvc, cfg.Password)
	if err != nil {
		logg.Error(ctx, "failed to create store service", err)
		os.Exit(1)
	}

	documentService, err := documents.NewService(documents.NewRepository(gorm), storageClient, dbClient, outboxSvc)
	if err != nil {
		logg.Error(ctx, "failed to create document service", err)
		os.Exit(1)
	}

	menuService, err := menu.NewService(menu.NewRepository(gorm))
	if err != nil {
		logg.Error(ctx, "failed to create menu service", err)
		os.Exit(1)
	}

	walletService, err := wallet.NewService(wallet.NewRepository(gorm), dbClient, outboxSvc)
	if err != nil {
		logg.Error(ctx, "failed to create wallet service", err)
		os.Exit(1)
	}

	orderRepo := orders.NewRepository(gorm)

	otpService, err := otp.NewService(otp.NewRepository(gorm), orderRepo, dbClient, cfg.OTP)
	if err != nil {
		logg.Error(ctx, "failed to create otp service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orderRepo, dbClient, outboxSvc, walletService, otpService, logg)
	if err != nil {
		logg.Error(ctx, "failed to create order service", err)
		os.Exit(1)
	}

	payoutService, err := payouts.NewService(payouts.NewRepository(gorm), walletService, dbClient, outboxSvc, logg)
	if err != nil {
		logg.Error(ctx, "failed to create payout service", err)
		os.Exit(1)
	}

	verificationProvider, err := bankverification.NewProvider(cfg.Verification)
	if err != nil {
		logg.Error(ctx, "failed to create verification provider", err)
		os.Exit(1)
	}
	verificationService, err := bankverification.NewService(bankverification.NewRepository(gorm), verificationProvider, cfg.Verification, logg)
	if err != nil {
		logg.Error(ctx, "failed to create verification service", err)
		os.Exit(1)
	}

	subscriptionService, err := subscriptions.NewService(subscriptions.NewRepository(gorm), stores.NewRepository(gorm), razorpayClient, dbClient, outboxSvc, logg)
	if err != nil {
		logg.Error(ctx, "failed to create subscription service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(gorm))
	if err != nil {
		logg.Error(ctx, "failed to create notification service", err)
		os.Exit(1)
	}

	ticketService, err := tickets.NewService(tickets.NewRepository(gorm), dbClient, outboxSvc)
	if err != nil {
		logg.Error(ctx, "failed to create ticket service", err)
		os.Exit(1)
	}

	razorpayWebhookService, err := webhooks.NewRazorpayService(razorpayClient, redisClient, subscriptionService, logg)
	if err != nil {
		logg.Error(ctx, "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	startCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(startCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			storageClient,
			bigqueryClient,
			sessionManager,
			authService,
			registerService,
			switchService,
			storeService,
			documentService,
			menuService,
			orderService,
			otpService,
			walletService,
			payoutService,
			verificationService,
			subscriptionService,
			notificationService,
			ticketService,
			razorpayWebhookService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(startCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(startCtx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(startCtx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}
