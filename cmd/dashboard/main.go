package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"xcreator/internal/authclient"
	"xcreator/internal/collection"
	"xcreator/internal/config"
	"xcreator/internal/postclient"
	"xcreator/internal/ratelimit"
	"xcreator/internal/server"
	"xcreator/internal/session"
	"xcreator/internal/util"
	"xcreator/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	auth := authclient.NewClient(cfg.BackendURL)
	posts := postclient.NewClient(cfg.BackendURL)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
	}

	var store session.Store
	switch cfg.SessionStore {
	case "redis":
		store = session.NewRedisStore(redisClient, "", sessionTTL)
	case "file":
		fileStore, err := session.NewFileStore(cfg.SessionDir)
		if err != nil {
			log.Fatalf("failed to init session store: %v", err)
		}
		store = fileStore
	default:
		store = session.NewMemoryStore()
	}

	sessions := session.NewManager(auth, store)
	flow := workflow.NewController(posts, sessions)
	library := collection.NewView(posts, sessions)
	sessions.OnLogout(flow.Reset)
	sessions.OnLogout(library.Reset)

	var loginLimiter *ratelimit.FixedWindowLimiter
	if cfg.LoginRateLimitPerMinute > 0 {
		loginLimiter, err = ratelimit.NewFixedWindowLimiter(redisClient, "", cfg.LoginRateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init login limiter: %v", err)
		}
	}

	httpServer := server.New(server.Config{
		Sessions:     sessions,
		Workflow:     flow,
		Collection:   library,
		LoginLimiter: loginLimiter,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("dashboard listening", "addr", addr, "backend", cfg.BackendURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
