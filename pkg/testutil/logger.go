package testutil

import (
	"flag"
	"testing"

	"github.com/go-logr/logr"
	"go.uber.org/zap/zapcore"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/logger"
)

// NewLogForTesting returns a logger that stays quiet unless the test run is
// verbose.
func NewLogForTesting(name string) logr.Logger {
	log := logger.New(name)
	log.SetLevel(zapcore.ErrorLevel)
	if !flag.Parsed() {
		flag.Parse() // Needed to test if verbose flag was present.
	}
	if testing.Verbose() {
		log.SetLevel(zapcore.DebugLevel)
	}
	return log.Logger.WithValues("test", true)
}
