package es

import (
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
)

const maxRetries = 3

type ClientConfig struct {
	Addresses []string
	IndexName string
	Username  string
	Password  string
}

// NewClient builds the typed client. Basic auth is used only when both
// credentials are set; throttling and gateway errors are retried.
func NewClient(config ClientConfig) (*elasticsearch.TypedClient, error) {
	if len(config.Addresses) == 0 {
		return nil, fmt.Errorf("elasticsearch: at least one address is required")
	}
	cfg := elasticsearch.Config{
		Addresses:     config.Addresses,
		MaxRetries:    maxRetries,
		RetryOnStatus: []int{http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
	}
	if config.Username != "" && config.Password != "" {
		cfg.Username = config.Username
		cfg.Password = config.Password
	}
	return elasticsearch.NewTypedClient(cfg)
}
