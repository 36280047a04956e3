package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pairchat/internal/blob"
	"pairchat/internal/chat"
	"pairchat/internal/config"
	"pairchat/internal/db"
	"pairchat/internal/logging"
	myMiddleware "pairchat/internal/middleware"
	"pairchat/internal/user"
)

func main() {
	// 1. Config & logging
	cfg, err := config.Load()
	if err != nil {
		logging.New(false).Fatal("config", zap.Error(err))
	}
	logger := logging.New(cfg.Debug)
	defer logger.Sync()

	// 2. Platform layer: Postgres
	database, err := db.NewDatabase(cfg.DBDSN)
	if err != nil {
		logger.Fatal("connect to postgres", zap.Error(err))
	}
	logger.Info("connected to postgres")

	if err := database.AutoMigrate(); err != nil {
		logger.Fatal("migrate schema", zap.Error(err))
	}
	logger.Info("database schema initialized")

	// 3. Platform layer: Redis relay (optional; single-instance
	// deployments simply leave REDIS_ADDR unset)
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logger.Fatal("connect to redis", zap.Error(err))
		}
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	// 4. User feature (auth collaborator)
	userRepo := user.NewRepository(database.Conn)
	userService := user.NewService(userRepo, cfg.JWTSecret)
	userHandler := user.NewHandler(userService)

	// 5. Presence & delivery core
	registry := chat.NewRegistry()
	router := chat.NewRouter(registry, logger)
	registry.OnChange(chat.NewBroadcaster(router, logger).PresenceChanged)

	var relay *chat.Relay
	if redisClient != nil {
		relay = chat.NewRelay(redisClient, router, logger)
		go relay.Run(context.Background())
	}

	uploader, err := blob.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		logger.Fatal("init upload dir", zap.Error(err))
	}

	chatStore := chat.NewRepository(database.Conn)
	chatService := chat.NewService(chatStore, router, registry, uploader, relay, logger)
	chatHandler := chat.NewHandler(chatService, logger)

	authMiddleware := myMiddleware.NewAuthMiddleware(userService)

	// 6. Routes
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	// Public routes
	r.Post("/register", userHandler.Register)
	r.Post("/login", userHandler.Login)
	r.Handle("/uploads/*", http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(cfg.UploadDir))))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)
		r.Get("/api/users", userHandler.ListUsers)

		// Real-time transport
		r.Get("/ws", chatHandler.ServeWs)

		r.Get("/api/messages/{peerID}", chatHandler.GetMessages)
		r.Post("/api/messages/send/{peerID}", chatHandler.SendMessage)
		r.Post("/api/messages/react/{messageID}", chatHandler.React)
		r.Post("/api/messages/read/{peerID}", chatHandler.MarkRead)
	})

	logger.Info("server starting", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
}
