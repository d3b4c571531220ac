// Package config loads signonctl configuration from TOML, with
// explicit presence checks so file values only override defaults when
// actually set.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/hostbridge/signon/internal/signon"
	"github.com/hostbridge/signon/internal/transport"
)

// EnvPassword lets deployments keep the credential out of the config
// file.
const EnvPassword = "SIGNON_PASSWORD"

type ProbeConfig struct {
	Interval   time.Duration
	ListenAddr string
}

type Config struct {
	Signon signon.Config
	Probe  ProbeConfig
}

func Default() Config {
	return Config{
		Signon: signon.Config{
			Transport: transport.DefaultConfig(),
		},
		Probe: ProbeConfig{
			Interval:   30 * time.Second,
			ListenAddr: "127.0.0.1:9463",
		},
	}
}

type fileConfig struct {
	Address        string `toml:"address"`
	User           string `toml:"user"`
	Password       string `toml:"password"`
	SecurityMode   string `toml:"security_mode"`
	ConnectTimeout string `toml:"connect_timeout"`
	ReadTimeout    string `toml:"read_timeout"`
	WriteTimeout   string `toml:"write_timeout"`

	TLS struct {
		Enabled            bool   `toml:"enabled"`
		Mutual             bool   `toml:"mutual"`
		CAFile             string `toml:"ca_file"`
		CertFile           string `toml:"cert_file"`
		KeyFile            string `toml:"key_file"`
		ServerName         string `toml:"server_name"`
		InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
	} `toml:"tls"`

	Probe struct {
		Interval   string `toml:"interval"`
		ListenAddr string `toml:"listen_addr"`
	} `toml:"probe"`
}

// Load reads path into the defaults. The password may come from the
// file or, preferably, from SIGNON_PASSWORD.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load signon config: %w", err)
	}

	if meta.IsDefined("address") {
		cfg.Signon.Address = strings.TrimSpace(raw.Address)
	}
	if meta.IsDefined("user") {
		cfg.Signon.UserID = strings.TrimSpace(raw.User)
	}
	if meta.IsDefined("password") {
		cfg.Signon.Password = raw.Password
	}
	if env := os.Getenv(EnvPassword); env != "" {
		cfg.Signon.Password = env
	}
	if meta.IsDefined("security_mode") {
		cfg.Signon.Transport.SecurityMode = transport.SecurityMode(strings.TrimSpace(raw.SecurityMode))
	}

	durations := []struct {
		key   string
		raw   string
		field *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &cfg.Signon.Transport.ConnectTimeout},
		{"read_timeout", raw.ReadTimeout, &cfg.Signon.Transport.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.Signon.Transport.WriteTimeout},
		{"probe.interval", raw.Probe.Interval, &cfg.Probe.Interval},
	}
	for _, d := range durations {
		if !meta.IsDefined(strings.Split(d.key, ".")...) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.field = v
	}

	if meta.IsDefined("tls") {
		cfg.Signon.Transport.TLS = transport.TLSConfig{
			Enabled:            raw.TLS.Enabled,
			Mutual:             raw.TLS.Mutual,
			CAFile:             strings.TrimSpace(raw.TLS.CAFile),
			CertFile:           strings.TrimSpace(raw.TLS.CertFile),
			KeyFile:            strings.TrimSpace(raw.TLS.KeyFile),
			ServerName:         strings.TrimSpace(raw.TLS.ServerName),
			InsecureSkipVerify: raw.TLS.InsecureSkipVerify,
		}
	}
	if meta.IsDefined("probe", "listen_addr") {
		cfg.Probe.ListenAddr = strings.TrimSpace(raw.Probe.ListenAddr)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Signon.Address) == "" {
		return fmt.Errorf("signon config missing address")
	}
	if strings.TrimSpace(cfg.Signon.UserID) == "" {
		return fmt.Errorf("signon config missing user")
	}
	if cfg.Probe.Interval <= 0 {
		return fmt.Errorf("probe interval must be positive")
	}
	if err := cfg.Signon.Transport.ValidateClientTransport(); err != nil {
		return err
	}
	return nil
}
