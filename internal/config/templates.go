package config

import (
	"fmt"
	"os"
)

// Template returns a starter config file for a new deployment.
func Template() string {
	return configTemplate
}

// WriteTemplate writes the starter config to path. It refuses to
// clobber an existing file unless overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(configTemplate), 0o600)
}

const configTemplate = `# signonctl configuration.
# Keep the password out of this file: set SIGNON_PASSWORD instead.

address = "as400.example.com:8476"
user = "qprobe"

security_mode = "development"
connect_timeout = "5s"
read_timeout = "15s"
write_timeout = "15s"

[tls]
enabled = false
# ca_file = "/etc/signon/ca.crt"
# server_name = "as400.example.com"

[probe]
interval = "30s"
listen_addr = "127.0.0.1:9463"
`
