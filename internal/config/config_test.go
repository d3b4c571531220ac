package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hostbridge/signon/internal/transport"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "signon.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
address = "thehost:8476"
user = "alice"
password = "from-file"
connect_timeout = "2s"

[probe]
interval = "10s"
listen_addr = "127.0.0.1:9999"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Signon.Address != "thehost:8476" || cfg.Signon.UserID != "alice" {
		t.Fatalf("unexpected target: %+v", cfg.Signon)
	}
	if cfg.Signon.Password != "from-file" {
		t.Fatalf("unexpected password source")
	}
	if cfg.Signon.Transport.ConnectTimeout != 2*time.Second {
		t.Fatalf("connect timeout override lost: %v", cfg.Signon.Transport.ConnectTimeout)
	}
	// Untouched values keep their defaults.
	if cfg.Signon.Transport.ReadTimeout != transport.DefaultConfig().ReadTimeout {
		t.Fatalf("read timeout default lost: %v", cfg.Signon.Transport.ReadTimeout)
	}
	if cfg.Probe.Interval != 10*time.Second || cfg.Probe.ListenAddr != "127.0.0.1:9999" {
		t.Fatalf("probe overrides lost: %+v", cfg.Probe)
	}
}

func TestLoadPasswordFromEnvWins(t *testing.T) {
	t.Setenv(EnvPassword, "from-env")
	path := writeConfig(t, `
address = "thehost:8476"
user = "alice"
password = "from-file"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Signon.Password != "from-env" {
		t.Fatalf("env password must win, got %q", cfg.Signon.Password)
	}
}

func TestLoadTLSSection(t *testing.T) {
	path := writeConfig(t, `
address = "thehost:8476"
user = "alice"

[tls]
enabled = true
ca_file = "ca.crt"
server_name = "thehost"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Signon.Transport.TLS.Enabled || cfg.Signon.Transport.TLS.CAFile != "ca.crt" {
		t.Fatalf("tls section lost: %+v", cfg.Signon.Transport.TLS)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
address = "thehost:8476"
user = "alice"
read_timeout = "soon"
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "read_timeout") {
		t.Fatalf("expected read_timeout parse error, got %v", err)
	}
}

func TestLoadRejectsMissingTarget(t *testing.T) {
	path := writeConfig(t, `user = "alice"`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "address") {
		t.Fatalf("expected missing address error, got %v", err)
	}
}

func TestLoadRejectsInvalidTransport(t *testing.T) {
	path := writeConfig(t, `
address = "thehost:8476"
user = "alice"

[tls]
mutual = true
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected transport validation error")
	}
}
