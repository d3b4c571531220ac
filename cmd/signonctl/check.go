package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hostbridge/signon/internal/signon"
	"github.com/hostbridge/signon/internal/transport"
)

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "path to signon config file")
	addr := fs.String("addr", "", "signon service address (host:port)")
	user := fs.String("user", "", "user id")
	password := fs.String("password", "", "password (prefer SIGNON_PASSWORD)")
	timeout := fs.Duration("timeout", 30*time.Second, "overall handshake timeout")
	attempts := fs.Int("attempts", 1, "dial attempts before giving up")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := resolveConfig(*configPath, *addr, *user, *password)
	if err != nil {
		return err
	}
	client, err := signon.NewClient(cfg.Signon)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := transport.DialRetry(ctx, cfg.Signon.Address, cfg.Signon.Transport, *attempts)
	if err != nil {
		return err
	}
	defer conn.Close()

	start := time.Now()
	info, err := client.SignonConn(ctx, conn)
	if err != nil {
		return err
	}
	log.Info().
		Str("host", client.Host()).
		Dur("duration", time.Since(start)).
		Msg("signon succeeded")

	fmt.Printf("user:                %s\n", info.UserID)
	fmt.Printf("server ccsid:        %d\n", info.ServerCCSID)
	fmt.Printf("current signon:      %s\n", formatTime(info.CurrentSignonTime))
	fmt.Printf("last signon:         %s\n", formatTime(info.LastSignonTime))
	fmt.Printf("password expiration: %s\n", formatTime(info.PasswordExpirationTime))
	fmt.Printf("expiration warning:  %t\n", info.PasswordExpirationWarning)
	return nil
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "never"
	}
	return ts.Format(time.RFC3339)
}
