package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"    // loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/seat-booking-flow/internal/config"
	"github.com/iliyamo/seat-booking-flow/internal/database"
	"github.com/iliyamo/seat-booking-flow/internal/grid"
	"github.com/iliyamo/seat-booking-flow/internal/handler"
	"github.com/iliyamo/seat-booking-flow/internal/hub"
	"github.com/iliyamo/seat-booking-flow/internal/middleware"
	"github.com/iliyamo/seat-booking-flow/internal/queue"
	"github.com/iliyamo/seat-booking-flow/internal/repository"
	"github.com/iliyamo/seat-booking-flow/internal/router"
)

// sweepInterval bounds how stale a hold's RELEASED event can be after
// the hold itself has already died via its Redis TTL.
const sweepInterval = 5 * time.Second

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis: connection failed; the hold store cannot run without it")
	}

	holds := repository.NewHoldStore(rdb, time.Duration(cfg.HoldTTLSec)*time.Second)
	users := repository.NewUserRepo(db)
	schedules := repository.NewScheduleRepo(db)
	coupons := repository.NewCouponRepo(db)
	reservations := repository.NewReservationRepo(db)

	streamHub := hub.New()
	bus := queue.NewPublisher(cfg.RabbitURL, streamHub.Broadcast)
	defer bus.Close()
	if cfg.RabbitURL != "" {
		go queue.StartSeatEventConsumer(cfg.RabbitURL, streamHub.Broadcast)
		go queue.StartBookingConsumer(cfg.RabbitURL)
	}

	seedReserved(schedules, reservations, holds)
	go sweepExpiredHolds(holds, bus)

	e := echo.New()
	e.HideBanner = true

	router.Register(e, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users),
		Schedule: handler.NewScheduleHandler(schedules),
		Booking:  handler.NewBookingHandler(cfg, db, holds, schedules, coupons, reservations, bus),
		Coupon:   handler.NewCouponHandler(coupons),
		Stream:   handler.NewStreamHandler(streamHub, holds, schedules),
	}, cfg.JWTSecret, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// seedReserved copies each active schedule's confirmed seats from MySQL
// into the Redis reserved sets, so availability survives a Redis wipe.
func seedReserved(schedules *repository.ScheduleRepo, reservations *repository.ReservationRepo,
	holds *repository.HoldStore) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ids, err := schedules.ListActiveIDs(ctx)
	if err != nil {
		log.Printf("seed: list schedules: %v", err)
		return
	}
	for _, id := range ids {
		rows, err := reservations.SeatsBySchedule(ctx, id)
		if err != nil {
			log.Printf("seed: schedule %d: %v", id, err)
			continue
		}
		seats := make([]grid.WireSeat, len(rows))
		for i, r := range rows {
			seats[i] = grid.WireSeat{Row: int(r.SeatRow), Col: int(r.SeatCol)}
		}
		if err := holds.SeedReserved(ctx, id, seats); err != nil {
			log.Printf("seed: schedule %d: %v", id, err)
		}
	}
}

// sweepExpiredHolds turns hold expiry into RELEASED stream events.  The
// seats free themselves via key TTLs; this loop only tells subscribers.
func sweepExpiredHolds(holds *repository.HoldStore, bus *queue.Publisher) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		expired, err := holds.SweepExpired(ctx, time.Now().UTC())
		if err != nil {
			log.Printf("sweeper: %v", err)
		}
		for _, rec := range expired {
			ev := queue.SeatEvent{ScheduleID: rec.ScheduleID, Action: queue.ActionReleased, Seats: rec.Seats}
			if err := bus.PublishSeatEvent(ctx, ev); err != nil {
				log.Printf("sweeper: publish: %v", err)
			}
		}
		cancel()
	}
}
