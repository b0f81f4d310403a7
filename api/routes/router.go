package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dishpatch/merchant-backend/api/controllers"
	"github.com/dishpatch/merchant-backend/api/middleware"
	"github.com/dishpatch/merchant-backend/internal/auth"
	"github.com/dishpatch/merchant-backend/internal/bankverification"
	"github.com/dishpatch/merchant-backend/internal/documents"
	"github.com/dishpatch/merchant-backend/internal/menu"
	"github.com/dishpatch/merchant-backend/internal/notifications"
	"github.com/dishpatch/merchant-backend/internal/orders"
	"github.com/dishpatch/merchant-backend/internal/otp"
	"github.com/dishpatch/merchant-backend/internal/payouts"
	"github.com/dishpatch/merchant-backend/internal/stores"
	"github.com/dishpatch/merchant-backend/internal/subscriptions"
	"github.com/dishpatch/merchant-backend/internal/tickets"
	"github.com/dishpatch/merchant-backend/internal/wallet"
	"github.com/dishpatch/merchant-backend/internal/webhooks"
	"github.com/dishpatch/merchant-backend/pkg/auth/session"
	"github.com/dishpatch/merchant-backend/pkg/bigquery"
	"github.com/dishpatch/merchant-backend/pkg/config"
	"github.com/dishpatch/merchant-backend/pkg/db"
	"github.com/dishpatch/merchant-backend/pkg/logger"
	"github.com/dishpatch/merchant-backend/pkg/redis"
	"github.com/dishpatch/merchant-backend/pkg/storage/r2"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	storageClient r2.Pinger,
	bigqueryClient bigquery.Pinger,
	sessionManager sessionManager,
	authService auth.Service,
	registerService auth.RegisterService,
	switchService auth.SwitchStoreService,
	storeService stores.Service,
	documentService documents.Service,
	menuService menu.Service,
	orderService orders.Service,
	otpService otp.Service,
	walletService wallet.Service,
	payoutService payouts.Service,
	verificationService bankverification.Service,
	subscriptionService subscriptions.Service,
	notificationService notifications.Service,
	ticketService tickets.Service,
	razorpayWebhookService *webhooks.RazorpayService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient, storageClient, bigqueryClient))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/razorpay", controllers.RazorpayWebhook(razorpayWebhookService, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(registerService, authService, logg))
		r.Post("/logout", controllers.AuthLogout(sessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(sessionManager, cfg.JWT, logg))
		r.With(middleware.Auth(cfg.JWT, sessionManager, logg)).Post("/switch-store", controllers.AuthSwitchStore(switchService, cfg.JWT, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Use(middleware.RateLimit(redisClient, cfg.APIRateLimit.Limit, cfg.APIRateLimit.Window, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.StoreContext(logg))

			r.Route("/v1/stores", func(r chi.Router) {
				r.Get("/me", controllers.StoreProfile(storeService, logg))
				r.Put("/me", controllers.StoreUpdate(storeService, logg))
				r.Post("/me/submit", controllers.StoreSubmit(storeService, logg))
				r.Get("/me/users", controllers.StoreUsers(storeService, logg))
				r.Post("/me/users/invite", controllers.StoreInvite(storeService, logg))
				r.Delete("/me/users/{userId}", controllers.StoreRemoveUser(storeService, logg))
			})

			r.Route("/v1/documents", func(r chi.Router) {
				r.Get("/", controllers.DocumentList(documentService, logg))
				r.Post("/presign", controllers.DocumentPresign(documentService, logg))
				r.Post("/{documentId}/confirm", controllers.DocumentConfirm(documentService, logg))
				r.Get("/{documentId}/download-url", controllers.DocumentDownloadURL(documentService, logg))
			})

			r.Route("/v1/menu", func(r chi.Router) {
				r.Get("/", controllers.MenuList(menuService, logg))
				r.Post("/", controllers.MenuCreate(menuService, logg))
				r.Get("/{itemId}", controllers.MenuGet(menuService, logg))
				r.Patch("/{itemId}", controllers.MenuUpdate(menuService, logg))
				r.Post("/{itemId}/availability", controllers.MenuSetAvailability(menuService, logg))
				r.Delete("/{itemId}", controllers.MenuDelete(menuService, logg))
			})

			r.Route("/v1/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(orderService, logg))
				r.Get("/{orderId}", controllers.OrderDetail(orderService, logg))
				r.Patch("/{orderId}/status", controllers.OrderUpdateStatus(orderService, logg))
				r.Post("/{orderId}/otp/validate", controllers.OrderValidateOTP(otpService, logg))
			})

			r.Route("/v1/wallet", func(r chi.Router) {
				r.Get("/balance", controllers.WalletBalance(walletService, logg))
				r.Get("/entries", controllers.WalletEntries(walletService, logg))
			})

			r.Route("/v1/payouts", func(r chi.Router) {
				r.Get("/accounts", controllers.PayoutAccountList(payoutService, logg))
				r.Post("/accounts", controllers.PayoutAccountCreate(payoutService, logg))
				r.Delete("/accounts/{accountId}", controllers.PayoutAccountDelete(payoutService, logg))
				r.Get("/requests", controllers.PayoutRequestList(payoutService, logg))
				r.Post("/requests", controllers.PayoutRequestCreate(payoutService, logg))
			})

			r.Route("/v1/verification/bank", func(r chi.Router) {
				r.Post("/", controllers.BankVerify(verificationService, logg))
				r.Get("/remaining", controllers.BankVerifyRemaining(verificationService, logg))
				r.Get("/history", controllers.BankVerifyHistory(verificationService, logg))
			})

			r.Route("/v1/subscriptions", func(r chi.Router) {
				r.Get("/plans", controllers.SubscriptionPlans(subscriptionService, logg))
				r.Get("/", controllers.SubscriptionCurrent(subscriptionService, logg))
				r.Post("/", controllers.SubscriptionSubscribe(subscriptionService, logg))
				r.Post("/change-plan", controllers.SubscriptionChangePlan(subscriptionService, logg))
				r.Post("/cancel", controllers.SubscriptionCancel(subscriptionService, logg))
				r.Get("/charges", controllers.SubscriptionCharges(subscriptionService, logg))
			})

			r.Route("/v1/tickets", func(r chi.Router) {
				r.Get("/", controllers.TicketList(ticketService, logg))
				r.Post("/", controllers.TicketOpen(ticketService, logg))
				r.Get("/{ticketId}", controllers.TicketDetail(ticketService, logg))
				r.Post("/{ticketId}/messages", controllers.TicketReply(ticketService, logg))
				r.Post("/{ticketId}/status", controllers.TicketSetStatus(ticketService, logg))
			})

			r.Route("/v1/notifications", func(r chi.Router) {
				r.Get("/", controllers.NotificationList(notificationService, logg))
				r.Get("/unread-count", controllers.NotificationUnreadCount(notificationService, logg))
				r.Post("/{notificationId}/read", controllers.NotificationMarkRead(notificationService, logg))
				r.Post("/read-all", controllers.NotificationMarkAllRead(notificationService, logg))
			})
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Use(middleware.RateLimit(redisClient, cfg.APIRateLimit.Limit, cfg.APIRateLimit.Window, logg))

		r.Post("/v1/orders/ingest", controllers.AdminOrderIngest(orderService, logg))
		r.Route("/v1/documents", func(r chi.Router) {
			r.Post("/{documentId}/review", controllers.AdminDocumentReview(documentService, logg))
		})
		r.Route("/v1/stores/{storeId}", func(r chi.Router) {
			r.Post("/activate", controllers.AdminStoreActivate(storeService, logg))
			r.Post("/suspend", controllers.AdminStoreSuspend(storeService, logg))
			r.Post("/accounts/{accountId}/verify", controllers.AdminPayoutAccountVerify(payoutService, logg))
		})
		r.Route("/v1/payouts/requests/{requestId}", func(r chi.Router) {
			r.Post("/approve", controllers.AdminPayoutApprove(payoutService, logg))
			r.Post("/settle", controllers.AdminPayoutSettle(payoutService, logg))
			r.Post("/reject", controllers.AdminPayoutReject(payoutService, logg))
		})
	})

	return r
}
