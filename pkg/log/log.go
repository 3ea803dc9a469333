package log

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is shared by every package through `var logger = &log.Logger`.
var Logger = logrus.Logger{
	Out:          os.Stderr,
	Formatter:    &logrus.TextFormatter{FullTimestamp: true},
	Hooks:        make(logrus.LevelHooks),
	Level:        logrus.InfoLevel,
	ExitFunc:     os.Exit,
	ReportCaller: false,
}

// Configure applies the level and output format from the node configuration.
// Unknown levels fall back to info.
func Configure(level string, format string) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)
	switch strings.ToLower(format) {
	case "json":
		Logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
