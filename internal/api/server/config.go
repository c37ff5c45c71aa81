package server

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/facetq/pkg/config/env"
)

type Config struct {
	Port         string
	UseHttp2     bool
	CorsOrigins  []string
	BodyLimit    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func LoadConfig() (*Config, error) {
	err := env.LoadDotEnv(os.Getenv("ENV"), "cmd/facetq_api/.env")
	if err != nil {
		slog.Info("Skipping .env ...", "error", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := validatePort(port); err != nil {
		return nil, fmt.Errorf("invalid port: %w", err)
	}

	var origins []string
	for _, origin := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	bodyLimit := os.Getenv("BODY_LIMIT")
	if bodyLimit == "" {
		bodyLimit = "4M"
	}

	readTimeout, err := durationEnv("READ_TIMEOUT_SECONDS", 30*time.Second)
	if err != nil {
		return nil, err
	}
	writeTimeout, err := durationEnv("WRITE_TIMEOUT_SECONDS", 60*time.Second)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:         port,
		UseHttp2:     os.Getenv("USE_HTTP2") == "true",
		CorsOrigins:  origins,
		BodyLimit:    bodyLimit,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}, nil
}

func validatePort(port string) error {
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return errors.New("port must be a number")
	}
	if portNum < 1 || portNum > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	return nil
}

// durationEnv reads a whole number of seconds; unset means def.
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive number of seconds", key, v)
	}
	return time.Duration(n) * time.Second, nil
}
