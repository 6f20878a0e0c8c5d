package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// NewHTTPClient builds an HTTP client with a request timeout and an optional proxy.
func NewHTTPClient(timeout time.Duration, proxyURL string) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// StatusError classifies a non-200 upstream response.
// 404 means the symbol is unknown; 408, 429 and 5xx are transient.
func StatusError(source string, code int, body []byte) error {
	if len(body) > 256 {
		body = body[:256]
	}
	switch {
	case code == http.StatusNotFound:
		return fmt.Errorf("%s: status %d: %w", source, code, ErrDataUnavailable)
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= 500:
		return fmt.Errorf("%s: status %d: %w", source, code, ErrTransientFetch)
	default:
		return fmt.Errorf("%s: unexpected status %d: %s", source, code, string(body))
	}
}

// TransportError wraps a failed round trip as transient. A cancelled context
// is returned as is.
func TransportError(source string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", source, err)
	}
	return fmt.Errorf("%s: %v: %w", source, err, ErrTransientFetch)
}
