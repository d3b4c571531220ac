// Package signon implements the client side of the host signon
// handshake: a seed exchange followed by one encrypted credential
// submission, both over a single exclusively-owned connection.
package signon

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/hostbridge/signon/internal/auth"
	"github.com/hostbridge/signon/internal/frame"
	"github.com/hostbridge/signon/internal/transport"
)

const (
	defaultClientVersion   uint32 = 1
	defaultDatastreamLevel uint16 = 5
)

// Config identifies the target host and credentials for one client.
type Config struct {
	// Address is the signon service endpoint, host:port.
	Address  string
	UserID   string
	Password string

	ClientVersion   uint32
	DatastreamLevel uint16

	Transport transport.Config
}

func (c Config) withDefaults() Config {
	if c.ClientVersion == 0 {
		c.ClientVersion = defaultClientVersion
	}
	if c.DatastreamLevel == 0 {
		c.DatastreamLevel = defaultDatastreamLevel
	}
	c.Transport = c.Transport.WithDefaults()
	return c
}

// Client performs signon handshakes against one host. Independent
// clients are independent handshakes; a Client holds no connection
// state between calls.
type Client struct {
	cfg         Config
	correlation atomic.Uint32
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, ErrHostRequired
	}
	if strings.TrimSpace(cfg.UserID) == "" {
		return nil, ErrUserIDRequired
	}
	if cfg.Password == "" {
		return nil, ErrPasswordRequired
	}
	return &Client{cfg: cfg.withDefaults()}, nil
}

// Host returns the host part of the configured address, used in error
// and log messages.
func (c *Client) Host() string {
	if host, _, err := net.SplitHostPort(c.cfg.Address); err == nil {
		return host
	}
	return c.cfg.Address
}

// Signon dials the host, runs the handshake, and closes the
// connection. Transport errors propagate unmodified.
func (c *Client) Signon(ctx context.Context) (*SessionInfo, error) {
	conn, err := transport.Dial(ctx, c.cfg.Address, c.cfg.Transport)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return c.SignonConn(ctx, conn)
}

// SignonConn runs the handshake over an already-established
// connection. The two phases are strictly sequential; the connection
// carries exactly one in-flight request at a time.
func (c *Client) SignonConn(ctx context.Context, conn *transport.Conn) (*SessionInfo, error) {
	neg, err := c.exchangeSeeds(ctx, conn)
	if err != nil {
		return nil, err
	}
	return c.sendSignonInfo(ctx, conn, neg)
}

// exchangeSeeds is phase one: send the client seed, collect the
// server seed and the negotiated levels.
func (c *Client) exchangeSeeds(ctx context.Context, conn *transport.Conn) (negotiation, error) {
	clientSeed, err := newClientSeed()
	if err != nil {
		return negotiation{}, err
	}

	correlation := c.correlation.Add(1)
	req := newSeedExchangeRequest(clientSeed, c.cfg.ClientVersion, c.cfg.DatastreamLevel, correlation)
	rep, err := c.roundTrip(ctx, conn, req, "seed exchange")
	if err != nil {
		return negotiation{}, err
	}

	neg, err := parseSeedExchangeReply(rep, clientSeed, c.Host())
	if err != nil {
		return negotiation{}, err
	}
	log.Debug().
		Str("host", c.Host()).
		Uint32("server_version", neg.serverVersion).
		Uint16("server_level", neg.serverLevel).
		Uint16("password_level", uint16(neg.passwordLevel)).
		Msg("seed exchange complete")
	return neg, nil
}

// sendSignonInfo is phase two: submit the encrypted credential and
// read back the session attributes.
func (c *Client) sendSignonInfo(ctx context.Context, conn *transport.Conn, neg negotiation) (*SessionInfo, error) {
	credential, err := auth.EncryptPassword(
		c.cfg.UserID, c.cfg.Password, neg.clientSeed, neg.serverSeed, neg.passwordLevel)
	if err != nil {
		return nil, err
	}

	correlation := c.correlation.Add(1)
	req, err := newSignonInfoRequest(strings.ToUpper(c.cfg.UserID), credential, neg.serverLevel, correlation)
	if err != nil {
		return nil, err
	}
	rep, err := c.roundTrip(ctx, conn, req, "signon info")
	if err != nil {
		return nil, err
	}

	info, err := parseSignonInfoReply(rep, c.Host())
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("host", c.Host()).
		Str("user", info.UserID).
		Uint32("ccsid", info.ServerCCSID).
		Msg("signon complete")
	return info, nil
}

// roundTrip sends one request and waits for its single reply,
// checking the correlation id so a stray frame cannot be mistaken for
// the answer.
func (c *Client) roundTrip(ctx context.Context, conn *transport.Conn, req *frame.Frame, phase string) (*frame.Frame, error) {
	if err := conn.Send(ctx, req); err != nil {
		return nil, fmt.Errorf("signon: %s with %s: %w", phase, c.Host(), err)
	}
	rep, err := conn.Receive(ctx)
	if err != nil {
		return nil, fmt.Errorf("signon: %s with %s: %w", phase, c.Host(), err)
	}
	if rep.Len() >= frame.HeaderLen && rep.CorrelationID() != req.CorrelationID() {
		return nil, fmt.Errorf("%w: %s with %s: sent %d got %d",
			ErrCorrelationMismatch, phase, c.Host(), req.CorrelationID(), rep.CorrelationID())
	}
	return rep, nil
}

// newClientSeed draws a fresh unpredictable 8-byte seed.
func newClientSeed() ([]byte, error) {
	seed := make([]byte, auth.SeedLen)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("signon: generate client seed: %w", err)
	}
	return seed, nil
}
