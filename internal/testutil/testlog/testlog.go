// Package testlog switches the global logger to the test profile.
package testlog

import (
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/hostbridge/signon/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Debug().Str("test", t.Name()).Msg("start")
}
