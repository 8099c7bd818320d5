package ollama

import (
	"context"
	"errors"
	"net/http"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/domain"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/infrastructure/resilience"
)

// mapBackendError translates transport failures into the domain backend error
// kinds the pipeline understands.
func mapBackendError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrBackendTimeout, operation, err)
	}

	var statusErr *resilience.HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return domain.WrapError(domain.ErrBackendTimeout, operation, err)
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusTooManyRequests:
			return domain.WrapError(domain.ErrBackendRefused, operation, err)
		default:
			return domain.WrapError(domain.ErrBackendUnavailable, operation, err)
		}
	}

	return domain.WrapError(domain.ErrBackendUnavailable, operation, err)
}
