package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/roamly/tour-booking-api/internal/config"
	"github.com/roamly/tour-booking-api/internal/database"
	"github.com/roamly/tour-booking-api/internal/handler"
	"github.com/roamly/tour-booking-api/internal/middleware"
	"github.com/roamly/tour-booking-api/internal/notify"
	"github.com/roamly/tour-booking-api/internal/repository"
	"github.com/roamly/tour-booking-api/internal/router"
	"github.com/roamly/tour-booking-api/internal/token"
)

func main() {
	// Local development reads a .env file; production relies on the real
	// environment.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	codec := token.NewCodec(cfg.JWTSecret, time.Duration(cfg.JWTTTLMin)*time.Minute)
	notifier := notify.NewAMQPNotifier()

	// Notification delivery worker; reconnects on its own.
	go func() {
		if err := notify.StartConsumer(); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	// Rate limiting degrades to a pass-through when Redis is absent.
	var limiter echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		limiter = middleware.CredentialRateLimit(config.LoadRateLimitConfig(), rdb)
	} else {
		log.Println("redis unavailable; credential rate limiting disabled")
	}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, codec, notifier), codec, users, limiter)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
