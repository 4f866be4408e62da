package httputil

import (
	"net/http"
	"time"
)

// NewClient creates an HTTP client with the given timeout and a shared transport
// tuned for repeated small JSON calls to the same backend host.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
