package woocommerce

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by FindBySKU when no catalog entry matches.
var ErrNotFound = errors.New("product not found")

// APIError is a failed storefront API call. Retryable errors (429 and
// 5xx) go back through the shared backoff policy; other 4xx are data
// problems and fail immediately.
type APIError struct {
	Status    int
	Code      string
	Message   string
	Retryable bool
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("woocommerce api error (status %d, code %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("woocommerce api error (status %d): %s", e.Status, e.Message)
}

// IsRetryable reports whether the error is an APIError worth another
// attempt. Transport errors are handled separately by the retry
// predicate.
func IsRetryable(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	// Non-API errors are transport-level failures; retry those too.
	return !errors.Is(err, ErrNotFound)
}

// IsFatal reports a non-retryable API error.
func IsFatal(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && !ae.Retryable
}

// IsAuth reports rejected API credentials. Callers abort the run on
// these instead of failing record after record.
func IsAuth(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && (ae.Status == 401 || ae.Status == 403)
}

// IsDuplicateSKU detects the create-time error WooCommerce returns when
// the SKU already exists, so the caller can convert the create into an
// update. The lookup-table message covers stores with stale product
// lookup tables.
func IsDuplicateSKU(err error) bool {
	var ae *APIError
	if !errors.As(err, &ae) {
		return false
	}
	switch ae.Code {
	case "woocommerce_rest_product_sku_already_exists", "product_invalid_sku":
		return true
	}
	return strings.Contains(ae.Message, "already present in the lookup table") ||
		strings.Contains(ae.Message, "SKU already exists")
}
