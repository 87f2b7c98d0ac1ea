// Package logger is the package-level structured logger every buffrs
// command reports through: install/package/publish progress, lint
// violations, and the final success line each command prints on the
// happy path (see pkg/logger's callers under internal/cli).
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger

// InitLogger prepares the package-level logger from the root command's
// --verbose and --no-color flags. Called once from cobra's
// PersistentPreRun before any subcommand runs.
func InitLogger(logLevel string, noColor bool) {
	logger = logrus.New()
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if noColor {
		logger.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: false,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   true,
			FullTimestamp: false,
		})
	}
}

// GetLogger returns the package-level logger, initializing it with
// buffrs's defaults (info level, colored output) if a command reaches a
// log call before the root command's PersistentPreRun has run, e.g. in
// a unit test that calls a pkg function directly.
func GetLogger() *logrus.Logger {
	if logger == nil {
		InitLogger("info", false)
	}
	return logger
}

// Info reports routine progress: a version resolved, an archive fetched
// from the cache, a lockfile entry reconciled.
func Info(msg string, fields ...logrus.Fields) {
	entry := GetLogger().WithFields(mergeFields(fields...))
	entry.Info(msg)
}

// Debug reports detail only useful when diagnosing a resolver or
// registry client problem; hidden unless --verbose raises the level.
func Debug(msg string, fields ...logrus.Fields) {
	entry := GetLogger().WithFields(mergeFields(fields...))
	entry.Debug(msg)
}

// Error reports a failed operation. Commands still return the error to
// cobra for exit-code handling; this is for progress visibility when a
// failure happens partway through a multi-package workspace install.
func Error(msg string, fields ...logrus.Fields) {
	entry := GetLogger().WithFields(mergeFields(fields...))
	entry.Error(msg)
}

// Warn reports a condition worth flagging but not fatal, such as an
// api package that depends on another api package.
func Warn(msg string, fields ...logrus.Fields) {
	entry := GetLogger().WithFields(mergeFields(fields...))
	entry.Warn(msg)
}

// Success reports a command's terminal happy-path outcome (install,
// package, publish, login, ...), tagged so log scrapers can tell a
// completed operation from routine progress at the same level.
func Success(msg string, fields ...logrus.Fields) {
	mergedFields := mergeFields(fields...)
	mergedFields["status"] = "success"
	GetLogger().WithFields(mergedFields).Info(msg)
}

// mergeFields flattens a call site's variadic logrus.Fields into one
// map, letting callers pass zero, one, or several field sets without an
// explicit merge at each call site.
func mergeFields(fields ...logrus.Fields) logrus.Fields {
	result := make(logrus.Fields)
	for _, field := range fields {
		for k, v := range field {
			result[k] = v
		}
	}
	return result
}
