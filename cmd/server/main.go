package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/ardato/secure-notes/internal/auth"
	"github.com/ardato/secure-notes/internal/config"
	"github.com/ardato/secure-notes/internal/database"
	"github.com/ardato/secure-notes/internal/handler"
	"github.com/ardato/secure-notes/internal/middleware"
	"github.com/ardato/secure-notes/internal/queue"
	"github.com/ardato/secure-notes/internal/repository"
	"github.com/ardato/secure-notes/internal/router"
	queue_publisher "github.com/ardato/secure-notes/internal/service"
	"github.com/ardato/secure-notes/internal/store"
	"github.com/ardato/secure-notes/internal/sweeper"
	"github.com/ardato/secure-notes/internal/token"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	signer, err := token.NewSigner(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("init signer: %v", err)
	}

	// Redis backs the token store and the rate limiter. Without it the
	// token store falls back to in-process memory (single-instance only)
	// and rate limiting is disabled.
	var tokens store.TokenStore
	rdb := config.NewRedisClient()
	if rdb != nil {
		tokens = store.NewRedisStore(rdb)
	} else {
		log.Println("redis unavailable, using in-memory token store")
		tokens = store.NewMemoryStore()
	}

	users := repository.NewUserRepo(db)
	notes := repository.NewNoteRepo(db, cfg.PageLimit)
	authSvc := auth.NewService(users, signer, tokens, cfg.AccessTTL(), cfg.RefreshTTL(), cfg.BcryptCost)

	e := echo.New()
	// Limiter first so unauthenticated floods are cut off before any token
	// or database work. With this ordering the user-based key strategies
	// see no principal; keep the default "ip" strategy, or register
	// Authorize first if per-user keying is needed.
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.Authorize(signer, tokens, users))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc))
	router.RegisterNotes(e, handler.NewNotesHandler(notes))

	// Background expiration sweeping and the expired-note event consumer
	// run independently of request handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.New(notes, queue_publisher.NewPublisher(), cfg.SweepInterval, cfg.SweepPageSize).Run(ctx)
	go func() {
		if err := queue.StartExpiredConsumer(); err != nil {
			log.Printf("expired-note consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
