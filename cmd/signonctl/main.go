package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hostbridge/signon/internal/config"
	"github.com/hostbridge/signon/internal/logging"
)

func main() {
	logging.ConfigureRuntime()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "check":
		err = runCheck(os.Args[2:])
	case "probe":
		err = runProbe(os.Args[2:])
	case "init":
		err = runInit(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("signonctl failed")
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: signonctl <command> [flags]

commands:
  check   perform one signon handshake and print the session attributes
  probe   periodically sign on and expose health/metrics endpoints
  init    write a starter config file
`)
}

// resolveConfig layers flag overrides on top of the optional config
// file. The password comes from the file, SIGNON_PASSWORD, or the
// -password flag, in rising precedence.
func resolveConfig(path, addr, user, password string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	} else if env := os.Getenv(config.EnvPassword); env != "" {
		cfg.Signon.Password = env
	}

	if strings.TrimSpace(addr) != "" {
		cfg.Signon.Address = strings.TrimSpace(addr)
	}
	if strings.TrimSpace(user) != "" {
		cfg.Signon.UserID = strings.TrimSpace(user)
	}
	if password != "" {
		cfg.Signon.Password = password
	}
	return cfg, nil
}
