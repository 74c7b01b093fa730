package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go/v7"

	"tickethub/config"
	"tickethub/handlers"
	"tickethub/internal/services/gateway/paystack"
	"tickethub/internal/store"
	_ "tickethub/migrations"
	"tickethub/monitoring"
	"tickethub/security"
	"tickethub/services"
	"tickethub/utils"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the payment gateway adapter
	gw, err := paystack.New(ctx, &paystack.Config{
		BaseURL:       cfg.GatewayBaseURL,
		SecretKey:     cfg.GatewaySecretKey,
		WebhookSecret: cfg.WebhookSecret,
		Timeout:       cfg.GatewayTimeout,
	})
	if err != nil {
		return err
	}

	// Initialize PubNub notifications; without keys, notifications are
	// dropped instead of published.
	var notifier services.Publisher = services.NoopPublisher{}
	if cfg.PubNubPublishKey != "" {
		pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PubNubUUID))
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		notifier = services.NewPubNubPublisher(pubnub.NewPubNub(pnConfig))
	}

	// Initialize services
	pbStore := store.New(app)
	inventoryService := services.NewInventoryService(pbStore, redisClient, cfg.AvailabilityTTL)
	issuer := services.NewTicketIssuer()
	reservations := services.NewReservationIndex(redisClient)
	bookingService := services.NewBookingService(pbStore, inventoryService, issuer, gw, notifier, reservations, cfg)
	reconcileService := services.NewReconcileService(pbStore, gw, inventoryService, issuer, notifier, reservations, cfg)
	cancelService := services.NewCancellationService(pbStore, inventoryService, gw, notifier, cfg)
	checkinService := services.NewCheckInService(pbStore)
	sweeper := services.NewSweeper(pbStore, inventoryService, reservations, cfg)

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(app, bookingService, cancelService)
	transactionHandler := handlers.NewTransactionHandler(app, reconcileService, gw)
	checkinHandler := handlers.NewCheckInHandler(app, checkinService)
	eventHandler := handlers.NewEventHandler(app, inventoryService)
	rateLimiter := security.NewRateLimiter(redisClient)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Metrics
	if cfg.EnableMetrics {
		monitoring.StartMetricsServer(cfg.MetricsPort)
	}

	// Background reservation sweeper
	go sweeper.Run(ctx)

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Event endpoints
		e.Router.GET("/api/v1/events/{eventId}/availability", eventHandler.GetAvailability)

		// Booking endpoints
		e.Router.POST("/api/v1/events/{eventId}/book", bookingHandler.Book).
			BindFunc(rateLimiter.AntiBot()).
			BindFunc(rateLimiter.BookingRateLimit(30))
		e.Router.POST("/api/v1/bookings/{bookingId}/pay", bookingHandler.PayAgain)
		e.Router.GET("/api/v1/bookings/{bookingId}", bookingHandler.GetBooking)
		e.Router.DELETE("/api/v1/bookings/{bookingId}", bookingHandler.Cancel)
		e.Router.GET("/api/v1/booking/history", bookingHandler.History)

		// Payment endpoints; verify is public, the buyer lands on it from
		// the gateway redirect.
		e.Router.GET("/api/v1/transactions/verify/{reference}", transactionHandler.Verify)
		e.Router.POST("/api/v1/webhooks/paystack", transactionHandler.Webhook)

		// Check-in
		e.Router.POST("/api/v1/events/{eventId}/check-in/{ticketId}", checkinHandler.CheckIn)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	slog.Info("shutdown signal received, stopping background tasks")
	cancel()
}
