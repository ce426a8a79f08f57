package smartlead

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedResponse marks a 2xx response whose body lacks the
	// expected shape.
	ErrMalformedResponse = errors.New("smartlead: malformed response")
	// ErrMissingBearer is returned by GraphQL calls when no bearer token is configured.
	ErrMissingBearer = errors.New("smartlead: bearer token not configured")
	// ErrMissingAPIKey is returned by REST calls when no API key is configured.
	ErrMissingAPIKey = errors.New("smartlead: api key not configured")
)

// VendorCallError reports a failed vendor call. Status is 0 when no HTTP
// response was received. Endpoint never includes the query string.
type VendorCallError struct {
	Endpoint string
	Status   int
	Message  string
	Err      error
}

func (e *VendorCallError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("smartlead: %s failed: %s", e.Endpoint, e.Message)
	}
	return fmt.Sprintf("smartlead: %s failed (status %d): %s", e.Endpoint, e.Status, e.Message)
}

func (e *VendorCallError) Unwrap() error { return e.Err }
