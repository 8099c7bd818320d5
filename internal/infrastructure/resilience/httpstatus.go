package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// HTTPStatusError carries a non-2xx backend response with enough context for
// classification and for a readable log line.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "http status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("%s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("%s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// RetryableStatus reports whether a status code is worth another attempt.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// ClassifyTransport is the shared classifier for HTTP backends. Context
// cancellation is the caller's deadline, not backend health, so it neither
// retries nor counts against the breaker.
func ClassifyTransport(err error) Classification {
	if err == nil {
		return Classification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Classification{}
	}
	if BreakerOpen(err) {
		return Classification{Retryable: true, CountsAsFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if RetryableStatus(statusErr.StatusCode) {
			return Classification{Retryable: true, CountsAsFailure: true}
		}
		return Classification{}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Classification{Retryable: true, CountsAsFailure: true}
	}

	return Classification{CountsAsFailure: true}
}
