// Package log configures loggers for network instrumentation.
package log

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// GetLogger returns a new logrus logger. Debug logging switches on when
// the NODE_DEBUG environment variable holds a true value.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if debug() {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

func debug() bool {
	v, err := strconv.ParseBool(os.Getenv("NODE_DEBUG"))
	return err == nil && v
}
