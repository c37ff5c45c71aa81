package env

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from .env files. ENV_PATH, when
// set, replaces paths. Missing files are an error only when env is "local"
// or empty; variables already set in the process are never overridden.
func LoadDotEnv(env string, paths ...string) error {
	if p := os.Getenv("ENV_PATH"); p != "" {
		paths = []string{p}
	} else {
		slog.Info("ENV_PATH is not set, using default paths", "paths", paths)
	}

	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		} else if env == "local" || env == "" {
			slog.Error("Failed to load environment variables in local mode", "path", p, "error", err)
			return err
		}
	}
	if len(existing) == 0 {
		slog.Debug("Skipping .env ...")
		return nil
	}
	return godotenv.Load(existing...)
}
