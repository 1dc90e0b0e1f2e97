package testhelper

import (
	"time"

	"github.com/jeffrom/heclog/config"
)

// DefaultTestConfig returns a config pointed at addr, suitable for tests
// against a MockCollector.
func DefaultTestConfig(addr string, verbose bool) *config.Config {
	conf := config.DefaultTestConfig(verbose)
	conf.Addr = addr
	conf.Source = "testsource"
	conf.Timeout = time.Second
	return conf
}
