// Package config exposes the environment-driven settings of learnboard.
package config

import (
	_ "embed"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

// LoadEnv reads KEY=VALUE pairs from the given files (".env" when none are
// passed) into the process environment. Variables that are already set win,
// and a missing file is not an error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := os.Getenv("LB_LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return os.Getenv("LB_DEBUG") == "true"
}

// IsProduction reports whether the process runs with LB_ENV=production.
// Session cookies are only marked Secure in production.
func IsProduction() bool {
	return os.Getenv("LB_ENV") == "production"
}

// GetLogFolder returns the folder for the file log backend. Empty disables it.
func GetLogFolder() string {
	return os.Getenv("LB_LOG_FOLDER")
}
