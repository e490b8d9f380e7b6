// Command simchannel posts a signed channel-partner webhook to a running API, the way an
// OTA connector would.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"hotelsuite/internal/channel"
	"hotelsuite/pkg/config"
)

func main() {
	var (
		url     = flag.String("url", "", "webhook endpoint url (defaults to http://localhost<HTTP_ADDR>/webhooks/channels/<partner>)")
		partner = flag.String("partner", "globetrip", "channel partner code")
		topic   = flag.String("topic", channel.TopicReservationCreate, "X-Channel-Topic value")
		secret  = flag.String("secret", "", "partner signing secret (defaults to the CHANNEL_SECRETS entry)")
		payload = flag.String("payload", "", "path to json payload file")
		eventID = flag.String("id", "", "optional X-Channel-Event-Id value")
	)
	flag.Parse()

	cfg := config.Load()
	if *url == "" {
		addr := cfg.HTTPAddr
		if strings.HasPrefix(addr, ":") {
			addr = "localhost" + addr
		}
		*url = "http://" + addr + "/webhooks/channels/" + *partner
	}
	if *secret == "" {
		*secret = cfg.ChannelSecrets[strings.ToLower(*partner)]
	}
	if *secret == "" {
		fmt.Fprintln(os.Stderr, "missing -secret (or a CHANNEL_SECRETS entry for the partner)")
		os.Exit(2)
	}
	if *payload == "" {
		fmt.Fprintln(os.Stderr, "missing -payload")
		os.Exit(2)
	}

	b, err := os.ReadFile(*payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read payload: %v\n", err)
		os.Exit(2)
	}

	req, err := http.NewRequest(http.MethodPost, *url, bytes.NewReader(b))
	if err != nil {
		fmt.Fprintf(os.Stderr, "new request: %v\n", err)
		os.Exit(2)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(channel.TopicHeader, *topic)
	req.Header.Set(channel.SignatureHeader, channel.Sign(b, *secret))
	if *eventID != "" {
		req.Header.Set(channel.EventIDHeader, *eventID)
	}

	c := &http.Client{Timeout: 10 * time.Second}
	resp, err := c.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "post: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("status=%d\n%s\n", resp.StatusCode, string(body))
}
