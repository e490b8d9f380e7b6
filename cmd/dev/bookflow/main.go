// Command bookflow drives a running API end to end: it books a stay through the storefront
// flow, looks it up as the guest, then checks it in and out from the console.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"hotelsuite/internal/catalog"
	"hotelsuite/pkg/config"
	"hotelsuite/pkg/hotelclient"
)

func main() {
	var (
		baseURL    = flag.String("url", "", "API base url (defaults to http://localhost<HTTP_ADDR>)")
		roomType   = flag.String("room-type", catalog.DemoDeluxeID, "room type id")
		ratePlan   = flag.String("rate-plan", "", "rate plan id (defaults to the first eligible plan)")
		daysOut    = flag.Int("days-out", 14, "check-in offset from today in days")
		nights     = flag.Int("nights", 2, "length of stay")
		email      = flag.String("email", "guest@example.com", "guest email")
		adminEmail = flag.String("admin-email", "", "console email (defaults to BOOTSTRAP_ADMIN_EMAIL; skips the console half when empty)")
		adminPass  = flag.String("admin-password", "", "console password (defaults to BOOTSTRAP_ADMIN_PASSWORD)")
	)
	flag.Parse()

	cfg := config.Load()
	if *baseURL == "" {
		*baseURL = defaultBaseURL(cfg.HTTPAddr)
	}
	if *adminEmail == "" {
		*adminEmail = cfg.Auth.BootstrapAdminEmail
	}
	if *adminPass == "" {
		*adminPass = cfg.Auth.BootstrapAdminPassword
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := hotelclient.New(*baseURL, nil)
	session := hotelclient.NewBookingSession(client, catalog.DemoPropertyID)
	checkIn := time.Now().UTC().AddDate(0, 0, *daysOut)
	session.SelectRoomType(*roomType)
	session.SetDates(checkIn, checkIn.AddDate(0, 0, *nights))
	session.Guest = hotelclient.Guest{FirstName: "Dev", LastName: "Flow", Email: *email}

	plans, err := session.RatePlans(ctx)
	fail("rate plans", err)
	if len(plans) == 0 {
		fail("rate plans", errors.New("no eligible rate plans for these dates"))
	}
	pick := plans[0].ID
	if *ratePlan != "" {
		pick = *ratePlan
	}
	fail("select rate plan", session.SelectRatePlan(pick))
	fmt.Printf("plan=%s total=%s %s\n", session.SelectedRatePlan().Code, session.SelectedRatePlan().TotalPrice, session.SelectedRatePlan().Currency)

	conf, err := session.Submit(ctx)
	var signIn *hotelclient.SignInRequired
	if errors.As(err, &signIn) {
		fmt.Fprintf(os.Stderr, "server requires an account; resume at %s after signing in\n", signIn.ReturnPath)
		os.Exit(1)
	}
	fail("submit", err)
	fmt.Printf("booked code=%s status=%s\n", conf.Code, conf.Status)

	again, err := session.Submit(ctx)
	fail("resubmit", err)
	fmt.Printf("resubmit replayed=%t same_code=%t\n", again.Replayed, again.Code == conf.Code)

	res, err := client.Lookup(ctx, conf.Code, *email)
	fail("lookup", err)
	fmt.Printf("lookup status=%s total=%s\n", res.Status, res.TotalAmount)

	if *adminEmail == "" || *adminPass == "" {
		return
	}
	admin, err := hotelclient.NewAdmin(*baseURL)
	fail("admin client", err)
	_, err = admin.Login(ctx, *adminEmail, *adminPass)
	fail("admin login", err)
	defer func() { _ = admin.Logout(context.Background()) }()

	list, _, err := admin.Reservations(ctx, hotelclient.ListOptions{Query: conf.Code})
	fail("admin list", err)
	if len(list) != 1 {
		fail("admin list", fmt.Errorf("expected 1 reservation for %s, got %d", conf.Code, len(list)))
	}
	id := list[0].ID
	fmt.Printf("console allowed=%s\n", strings.Join(list[0].AllowedActions, ","))

	if list[0].Allows(hotelclient.ActionCheckIn) {
		r, err := admin.CheckIn(ctx, id, "")
		fail("check in", err)
		fmt.Printf("checked in status=%s\n", r.Status)

		r, err = admin.CheckOut(ctx, id)
		fail("check out", err)
		fmt.Printf("checked out status=%s\n", r.Status)
	} else {
		fmt.Printf("check-in not allowed from %s; cancelling instead\n", list[0].Status)
		r, err := admin.Cancel(ctx, id, "bookflow cleanup")
		fail("cancel", err)
		fmt.Printf("cancelled status=%s\n", r.Status)
	}

	evs, err := admin.Events(ctx, id)
	fail("events", err)
	for _, e := range evs {
		fmt.Printf("  %s %s by %s\n", e.OccurredAt.Format(time.RFC3339), e.EventType, e.Actor)
	}
}

func fail(step string, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", step, err)
	os.Exit(1)
}

func defaultBaseURL(httpAddr string) string {
	if strings.HasPrefix(httpAddr, ":") {
		return "http://localhost" + httpAddr
	}
	if httpAddr != "" {
		return "http://" + httpAddr
	}
	return "http://localhost:8081"
}
