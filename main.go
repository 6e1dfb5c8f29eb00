package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/billing"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/config"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/db"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/feed"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/handlers"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/identity"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/middleware"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/observability"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/rabbitmq"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/repositories"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/telemetry"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownTracing, err := observability.InitTracing(context.Background(), cfg.OTLPEndpoint, "lupi-messaging", cfg.Environment)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	if cfg.AMQPURL != "" {
		publisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("event publisher disabled: %v", err)
		} else {
			observability.SetPublisher(publisher)
			defer publisher.Close()
		}
	}

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPublisher.Close()
	log.Printf("audit publisher mode=%s", rabbitmq.PublisherMode(auditPublisher))
	audit := telemetry.NewAuditEmitter(auditPublisher, cfg.AuditRoutingKey, "lupi-messaging", cfg.Environment)

	broker := feed.NewBroker()

	conversationRepo := repositories.NewConversationRepo(database, broker)
	messageRepo := repositories.NewMessageRepo(database, broker)
	profileRepo := repositories.NewProfileRepo(database)
	billingRepo := repositories.NewBillingRepo(database)

	verifier := identity.NewVerifier(cfg.SessionSecret)
	resolver := identity.NewResolver(profileRepo)

	hub := ws.NewHub()

	messagingHandler := handlers.NewMessagingHandler(conversationRepo, messageRepo, profileRepo, broker)
	profileHandler := handlers.NewProfileHandler(profileRepo)
	billingHandler := handlers.NewBillingHandler(
		billing.NewClient(cfg.BillingAPIURL, cfg.BillingAPIKey),
		billing.NewSyncer(billingRepo),
		billingRepo,
		cfg.BillingWebhookSecret,
		audit,
	)

	conversationWS := ws.NewConversationSocketHandler(hub, conversationRepo, messageRepo, profileRepo, broker, verifier, resolver)
	inboxWS := ws.NewInboxSocketHandler(hub, conversationRepo, messageRepo, profileRepo, broker, verifier, resolver)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("lupi-messaging"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(verifier, resolver)

	router.GET("/me", authMiddleware, messagingHandler.Me)
	router.GET("/me/profile", authMiddleware, profileHandler.GetProfile)
	router.PUT("/me/profile", authMiddleware, profileHandler.UpdateProfile)
	router.GET("/professionals/:user_id", authMiddleware, profileHandler.GetProfessional)

	router.GET("/conversations", authMiddleware, messagingHandler.ListConversations)
	router.POST("/conversations/start", authMiddleware, messagingHandler.StartConversation)
	router.GET("/conversations/:conversation_id/messages", authMiddleware, messagingHandler.GetMessages)
	router.POST("/conversations/:conversation_id/messages", authMiddleware, messagingHandler.PostMessage)
	router.GET("/unread-count", authMiddleware, messagingHandler.UnreadCount)

	router.POST("/billing/checkout", authMiddleware, billingHandler.CreateCheckout)
	router.POST("/billing/portal", authMiddleware, billingHandler.CreatePortal)
	router.GET("/billing/invoices", authMiddleware, billingHandler.ListInvoices)
	router.GET("/billing/subscription", authMiddleware, billingHandler.GetSubscription)
	router.POST("/billing/webhook", billingHandler.Webhook)

	router.GET("/ws/conversations/:conversation_id", conversationWS.Handle)
	router.GET("/ws/inbox", inboxWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
