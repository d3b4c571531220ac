package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hostbridge/signon/internal/frame"
)

var ErrAddressRequired = errors.New("transport: host address required")

// Conn is an exclusively-owned connection to one host server. Callers
// must keep at most one request/reply pair in flight; Conn enforces
// deadlines, not multiplexing.
type Conn struct {
	conn   net.Conn
	reader *bufio.Reader
	cfg    Config
	limits frame.Limits
}

// Dial opens a TCP connection to addr, upgrading to TLS when
// configured. The config is validated before any socket is opened.
func Dial(ctx context.Context, addr string, cfg Config) (*Conn, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, ErrAddressRequired
	}
	cfg = cfg.WithDefaults()
	if err := cfg.ValidateClientTransport(); err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if !cfg.TLS.Enabled {
		return newConn(rawConn, cfg), nil
	}

	tlsCfg, err := clientTLSConfig(addr, cfg)
	if err != nil {
		_ = rawConn.Close()
		return nil, err
	}
	conn := tls.Client(rawConn, tlsCfg)
	handshakeCtx, cancel := context.WithTimeout(ctx, cfg.HandshakeTimeout)
	defer cancel()
	if err := conn.HandshakeContext(handshakeCtx); err != nil {
		_ = rawConn.Close()
		return nil, err
	}
	return newConn(conn, cfg), nil
}

// DialRetry dials with backoff until maxAttempts is exhausted or the
// context is done. maxAttempts <= 0 retries forever.
func DialRetry(ctx context.Context, addr string, cfg Config, maxAttempts int) (*Conn, error) {
	cfg = cfg.WithDefaults()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var attempt int
	for {
		attempt++
		conn, err := Dial(ctx, addr, cfg)
		if err == nil {
			return conn, nil
		}
		log.Warn().Int("attempt", attempt).Str("addr", addr).Err(err).Msg("dial failed")
		if maxAttempts > 0 && attempt >= maxAttempts {
			return nil, err
		}
		delay := NextBackoffDelay(cfg.Backoff, attempt, rng)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func newConn(c net.Conn, cfg Config) *Conn {
	return &Conn{
		conn:   c,
		reader: bufio.NewReader(c),
		cfg:    cfg,
		limits: frame.DefaultLimits(),
	}
}

// NewConn wraps an already-established connection, used by tests and
// by callers that manage their own sockets.
func NewConn(c net.Conn, cfg Config) *Conn {
	return newConn(c, cfg.WithDefaults())
}

func clientTLSConfig(addr string, cfg Config) (*tls.Config, error) {
	out := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
	}

	serverName := strings.TrimSpace(cfg.TLS.ServerName)
	if serverName == "" {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		serverName = host
	}
	out.ServerName = serverName

	if caPath := strings.TrimSpace(cfg.TLS.CAFile); caPath != "" {
		caPEM, err := os.ReadFile(caPath)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(caPEM); !ok {
			return nil, fmt.Errorf("transport: parse tls ca bundle: %s", caPath)
		}
		out.RootCAs = pool
	}

	if cfg.TLS.Mutual {
		cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return nil, err
		}
		out.Certificates = []tls.Certificate{cert}
	}
	return out, nil
}

// Send writes one frame under the write timeout, tightened by the
// context deadline when that is earlier.
func (c *Conn) Send(ctx context.Context, f *frame.Frame) error {
	if err := c.conn.SetWriteDeadline(c.deadline(ctx, c.cfg.WriteTimeout)); err != nil {
		return err
	}
	return frame.Write(c.conn, f)
}

// Receive blocks for the next inbound frame. Exactly one caller at a
// time; the signon handshake guarantees this by being sequential.
func (c *Conn) Receive(ctx context.Context) (*frame.Frame, error) {
	if err := c.conn.SetReadDeadline(c.deadline(ctx, c.cfg.ReadTimeout)); err != nil {
		return nil, err
	}
	return frame.Read(c.reader, c.limits)
}

func (c *Conn) deadline(ctx context.Context, timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	return deadline
}

func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *Conn) Close() error { return c.conn.Close() }
