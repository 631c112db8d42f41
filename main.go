package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	authpb "messenger-service/pb/auth"

	"messenger-service/internal/config"
	"messenger-service/internal/crypto"
	"messenger-service/internal/db"
	"messenger-service/internal/delivery"
	grpcclient "messenger-service/internal/grpc"
	"messenger-service/internal/handlers"
	"messenger-service/internal/middleware"
	"messenger-service/internal/observability"
	"messenger-service/internal/presence"
	"messenger-service/internal/rabbitmq"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
	"messenger-service/internal/ws"
)

const serviceName = "messenger-service"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownTracing, err := observability.SetupTracing(context.Background(), serviceName, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("tracer shutdown error: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	authConn, err := grpc.NewClient(cfg.AuthGRPCAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		log.Fatalf("failed to connect to auth grpc: %v", err)
	}
	defer authConn.Close()
	authClient := grpcclient.NewAuthClient(authpb.NewAuthServiceClient(authConn))

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	audit := telemetry.NewAuditEmitter(publisher, "audit.messenger", serviceName, cfg.Environment)

	cipher, err := crypto.New(cfg.EncryptionSecret)
	if err != nil {
		log.Fatalf("failed to initialize cipher: %v", err)
	}

	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	reactionRepo := repositories.NewReactionRepo(database)
	contactRepo := repositories.NewContactRepo(database)
	presenceRepo := repositories.NewPresenceRepo(database)
	attachmentRepo := repositories.NewAttachmentRepo(database)

	hub := ws.NewHub()
	tracker := presence.NewTracker(presenceRepo, hub)
	pipeline := delivery.NewPipeline(chatRepo, messageRepo, reactionRepo, cipher, hub)

	chatHandler := handlers.NewChatHandler(chatRepo, messageRepo, pipeline, authClient, audit)
	messageHandler := handlers.NewMessageHandler(pipeline, chatRepo, reactionRepo, attachmentRepo, messageRepo, audit)
	contactHandler := handlers.NewContactHandler(contactRepo, presenceRepo, authClient, audit)
	userHandler := handlers.NewUserHandler(authClient, presenceRepo, tracker)
	wsHandler := ws.NewHandler(hub, chatRepo, authClient, tracker)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(authClient)

	router.GET("/chats", authMiddleware, chatHandler.ListChats)
	router.POST("/chats", authMiddleware, chatHandler.CreateGroup)
	router.PATCH("/chats/:chat_id", authMiddleware, chatHandler.RenameChat)
	router.GET("/chats/:chat_id/members", authMiddleware, chatHandler.ListMembers)
	router.POST("/chats/:chat_id/members", authMiddleware, chatHandler.AddMember)
	router.DELETE("/chats/:chat_id/members/:user_id", authMiddleware, chatHandler.RemoveMember)

	router.GET("/chats/:chat_id/messages", authMiddleware, messageHandler.GetMessages)
	router.POST("/chats/:chat_id/messages", authMiddleware, messageHandler.SendMessage)
	router.PUT("/chats/:chat_id/messages/:message_id", authMiddleware, messageHandler.EditMessage)
	router.DELETE("/chats/:chat_id/messages/:message_id", authMiddleware, messageHandler.DeleteMessage)
	router.PUT("/chats/:chat_id/messages/:message_id/pin", authMiddleware, messageHandler.PinMessage)
	router.POST("/chats/:chat_id/messages/:message_id/reactions", authMiddleware, messageHandler.React)
	router.GET("/chats/:chat_id/messages/:message_id/reactions", authMiddleware, messageHandler.ListReactions)
	router.POST("/chats/:chat_id/messages/:message_id/attachments", authMiddleware, messageHandler.AddAttachment)
	router.GET("/chats/:chat_id/messages/:message_id/attachments", authMiddleware, messageHandler.ListAttachments)

	router.GET("/contacts", authMiddleware, contactHandler.ListContacts)
	router.POST("/contacts", authMiddleware, contactHandler.AddContact)
	router.GET("/users", authMiddleware, userHandler.ListUsers)
	router.POST("/presence/offline", authMiddleware, userHandler.Logout)

	router.GET("/ws", wsHandler.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, cfg.Debug)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
