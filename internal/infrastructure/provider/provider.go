// Package provider contains the concrete mobile-money gateway bindings.
// Exactly one binding is active per deployment, selected by configuration;
// the rest of the system only sees the application.ProviderGateway port.
package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/josephasare/virtual-card-service/internal/application"
	"github.com/josephasare/virtual-card-service/internal/config"
)

type ProviderError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

func IsProviderError(err error) (*ProviderError, bool) {
	var provErr *ProviderError
	ok := errors.As(err, &provErr)
	return provErr, ok
}

// New builds the gateway binding named by cfg.Kind.
func New(cfg config.ProviderConfig) (application.ProviderGateway, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	switch cfg.Kind {
	case "directdebit":
		return NewDirectDebitGateway(cfg, httpClient), nil
	case "requesttopay":
		return NewRequestToPayGateway(cfg, httpClient), nil
	case "checkout":
		return NewCheckoutGateway(cfg, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}
}

// formatMSISDN normalizes a Ghanaian phone number to the 233XXXXXXXXX form
// the provider APIs expect.
func formatMSISDN(phone string) string {
	switch {
	case strings.HasPrefix(phone, "0"):
		return "233" + phone[1:]
	case strings.HasPrefix(phone, "233"):
		return phone
	default:
		return "233" + phone
	}
}
