// Command bookctl drives a complete booking flow against the service
// from a terminal: pick seats, hold them, choose a discount and pay,
// with live availability printed as it streams in.  It exists both as a
// reference client and as a manual test rig for the flow package.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/seat-booking-flow/internal/client"
	"github.com/iliyamo/seat-booking-flow/internal/flow"
	"github.com/iliyamo/seat-booking-flow/internal/grid"
	"github.com/iliyamo/seat-booking-flow/internal/session"
	"github.com/iliyamo/seat-booking-flow/internal/stream"
)

// stdoutNotifier prints flow notices where the user is looking.
type stdoutNotifier struct{}

func (stdoutNotifier) Notify(msg string) { fmt.Println("! " + msg) }

// stdinConfirmer asks a y/n question on the terminal.
type stdinConfirmer struct{ in *bufio.Reader }

func (c stdinConfirmer) Confirm(prompt string) bool {
	fmt.Print(prompt + " [y/N] ")
	line, err := c.in.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func main() {
	_ = godotenv.Load()

	var (
		base       = flag.String("base", envOr("BOOKING_BASE_URL", "http://localhost:8080"), "service base URL")
		email      = flag.String("email", os.Getenv("BOOKING_EMAIL"), "login email")
		password   = flag.String("password", os.Getenv("BOOKING_PASSWORD"), "login password")
		scheduleID = flag.Uint64("schedule", 1, "schedule id to book")
	)
	flag.Parse()
	if *email == "" || *password == "" {
		log.Fatal("email and password are required (flags or BOOKING_EMAIL/BOOKING_PASSWORD)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(*base)
	if err := api.Login(ctx, *email, *password); err != nil {
		log.Fatalf("login: %v", err)
	}

	stdin := bufio.NewReader(os.Stdin)
	f := flow.New(flow.Deps{
		API:       api,
		Beacon:    client.NewBeacon(*base),
		Stream:    &stream.SSESubscriber{BaseURL: api.BaseURL(), Token: api.Token()},
		Store:     session.NewMemoryStore(),
		Notifier:  stdoutNotifier{},
		Confirmer: stdinConfirmer{in: stdin},
	}, flow.Config{ScheduleID: *scheduleID, SessionKey: "bookctl"})

	if err := f.Mount(ctx); err != nil {
		log.Fatalf("mount: %v", err)
	}
	defer f.Close(context.Background())

	fmt.Println("commands: toggle R C | confirm | coupon [CODE] | proceed | pay | back | status | quit")
	for {
		fmt.Printf("[%s] > ", f.Step())
		line, err := stdin.ReadString('\n')
		if err != nil {
			f.Abandon(context.Background())
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "toggle":
			if len(fields) != 3 {
				fmt.Println("usage: toggle R C (1-based)")
				continue
			}
			r, err1 := strconv.Atoi(fields[1])
			col, err2 := strconv.Atoi(fields[2])
			if err1 != nil || err2 != nil {
				fmt.Println("usage: toggle R C (1-based)")
				continue
			}
			report(f.ToggleSeat(grid.FromWire(grid.WireSeat{Row: r, Col: col})))
			fmt.Printf("selected: %v\n", f.Selected())
		case "confirm":
			if report(f.ConfirmSelection(ctx)) {
				s := f.Session()
				fmt.Printf("held %d seat(s) until %s\n", len(s.Seats), s.ExpiresAt.Local().Format("15:04:05"))
			}
		case "coupon":
			code := ""
			if len(fields) > 1 {
				code = fields[1]
			}
			report(f.ChooseDiscount(ctx, code))
		case "proceed":
			if report(f.ProceedToPayment(ctx)) {
				d := f.Session().Draft
				fmt.Printf("subtotal %d - discount %d = total %d cents\n",
					d.SubtotalCents, d.DiscountCents, d.TotalCents)
			}
		case "pay":
			res, err := f.Pay(ctx)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("confirmed! reservation #%d, %d cents\n", res.ReservationID, res.TotalCents)
		case "back":
			report(f.Back(ctx))
		case "status":
			s := f.Session()
			fmt.Printf("step=%s booking=%q selected=%v held=%v\n", s.Step, s.BookingID, f.Selected(), s.Seats)
		case "quit", "exit":
			f.Abandon(context.Background())
			return
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}

func report(err error) bool {
	if err != nil {
		fmt.Println("error:", err)
		return false
	}
	return true
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
