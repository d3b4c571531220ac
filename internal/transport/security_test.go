package transport

import (
	"errors"
	"testing"
)

func TestValidateClientTransport(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"development default", func(c *Config) {}, nil},
		{"unknown mode", func(c *Config) { c.SecurityMode = "quantum" }, ErrInvalidSecurityMode},
		{"production without tls", func(c *Config) { c.SecurityMode = SecurityModeProduction }, ErrTLSRequired},
		{"production skip verify", func(c *Config) {
			c.SecurityMode = SecurityModeProduction
			c.TLS.Enabled = true
			c.TLS.CAFile = "ca.crt"
			c.TLS.InsecureSkipVerify = true
		}, ErrTLSInsecureSkipNotAllow},
		{"mutual without tls", func(c *Config) { c.TLS.Mutual = true }, ErrTLSRequired},
		{"tls without ca", func(c *Config) { c.TLS.Enabled = true }, ErrTLSCAFileRequired},
		{"mutual without cert", func(c *Config) {
			c.TLS.Enabled = true
			c.TLS.Mutual = true
			c.TLS.CAFile = "ca.crt"
		}, ErrTLSCertFileRequired},
		{"mutual without key", func(c *Config) {
			c.TLS.Enabled = true
			c.TLS.Mutual = true
			c.TLS.CAFile = "ca.crt"
			c.TLS.CertFile = "client.crt"
		}, ErrTLSKeyFileRequired},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.ValidateClientTransport()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestNormalizeSecurityMode(t *testing.T) {
	if NormalizeSecurityMode("") != SecurityModeDevelopment {
		t.Fatalf("empty mode should normalize to development")
	}
	if NormalizeSecurityMode("  Production ") != SecurityModeProduction {
		t.Fatalf("mode should trim and lowercase")
	}
}
