package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/oakbridge/club-sessions/internal/booking"
	"github.com/oakbridge/club-sessions/internal/config"
	"github.com/oakbridge/club-sessions/internal/database"
	"github.com/oakbridge/club-sessions/internal/handler"
	"github.com/oakbridge/club-sessions/internal/notifier"
	"github.com/oakbridge/club-sessions/internal/queue"
	"github.com/oakbridge/club-sessions/internal/repository"
	"github.com/oakbridge/club-sessions/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional, real deployments set env directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, cache and rate limiting disabled")
	}

	sessions := repository.NewSessionRepo(db)
	regs := repository.NewRegistrationRepo(db)
	guests := repository.NewGuestRepo(db)
	waitlist := repository.NewWaitlistRepo(db)
	holds := repository.NewHoldRepo(db)
	points := repository.NewPointsRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	engine := booking.NewEngine(
		db, sessions, regs, guests, waitlist, holds, points,
		notifier.NewAMQPNotifier(),
		time.Duration(cfg.HoldTTLHours)*time.Hour,
		time.Duration(cfg.ExpiryWarnHours)*time.Hour,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.StartSweeper(ctx, time.Duration(cfg.SweepEveryMin)*time.Minute)

	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, users, tokens, points),
		Public:  handler.NewPublicHandler(sessions, waitlist),
		Booking: handler.NewBookingHandler(engine, regs, guests, waitlist),
		Pass:    handler.NewPassHandler(sessions, regs, guests, users),
		Payment: handler.NewPaymentHandler(engine, cfg.GatewayToken),
		Admin:   handler.NewAdminHandler(sessions, regs, guests, waitlist),
	}, cfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
