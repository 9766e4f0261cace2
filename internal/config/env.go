package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	loadOnce   sync.Once
	loadedPath string
	loadErr    error
)

// EnsureDotEnv loads the first .env file found from the current working
// directory up to the filesystem root. Variables already set in the process
// environment win. Subsequent calls are no-ops.
func EnsureDotEnv() error {
	// Keep unit tests hermetic: a developer-local .env must not leak in.
	if runningUnderGoTest() {
		return nil
	}
	loadOnce.Do(func() {
		path, err := findDotEnv()
		if err != nil {
			loadErr = err
			log.Debug().Err(err).Msg("search .env failed")
			return
		}
		if path == "" {
			return
		}
		if err := godotenv.Load(path); err != nil {
			loadErr = errors.Wrapf(err, "load %s", path)
			log.Warn().Err(err).Str("dotenv", path).Msg("load .env failed")
			return
		}
		loadedPath = path
		log.Debug().Str("dotenv", path).Msg("loaded .env")
	})
	return loadErr
}

// LoadedPath returns the resolved .env path if one was loaded, otherwise "".
func LoadedPath() string {
	return loadedPath
}

func runningUnderGoTest() bool {
	if strings.HasSuffix(os.Args[0], ".test") {
		return true
	}
	for _, arg := range os.Args[1:] {
		if strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	return false
}

func findDotEnv() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(wd, ".env")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		} else if err != nil && !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			return "", nil
		}
		wd = parent
	}
}

// String returns the trimmed environment variable or fallback when unset.
func String(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// Int returns an integer environment variable or fallback when invalid.
func Int(key string, fallback int) int {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		parsed, err := strconv.Atoi(val)
		if err == nil {
			return parsed
		}
		invalid(key, val, err)
	}
	return fallback
}

// Float returns a float environment variable or fallback when invalid.
func Float(key string, fallback float64) float64 {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return parsed
		}
		invalid(key, val, err)
	}
	return fallback
}

// Hex16 parses a 16-bit value written in hex, with or without 0x.
func Hex16(key string, fallback uint16) uint16 {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		s := strings.TrimPrefix(strings.ToLower(val), "0x")
		parsed, err := strconv.ParseUint(s, 16, 16)
		if err == nil {
			return uint16(parsed)
		}
		invalid(key, val, err)
	}
	return fallback
}

// Duration parses a time duration from environment or returns fallback.
func Duration(key string, fallback time.Duration) time.Duration {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		parsed, err := time.ParseDuration(val)
		if err == nil {
			return parsed
		}
		invalid(key, val, err)
	}
	return fallback
}

// Bool parses a boolean environment variable.
func Bool(key string, fallback bool) bool {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		lower := strings.ToLower(val)
		if lower == "1" || lower == "true" || lower == "yes" {
			return true
		}
		if lower == "0" || lower == "false" || lower == "no" {
			return false
		}
		log.Warn().Str("key", key).Str("value", val).Msg("invalid boolean, using default")
	}
	return fallback
}

// List splits a comma separated variable, lowercasing and dropping blanks.
func List(key string, fallback []string) []string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func invalid(key, val string, err error) {
	log.Warn().Err(err).Str("key", key).Str("value", val).Msg("invalid number, using default")
}
