package gateway

import (
	"errors"
	"fmt"
)

// ErrSessionExpired signals that the refresh path failed and the session
// was cleared. Callers should send the user back to the login entry point.
var ErrSessionExpired = errors.New("session expired, please log in again")

// APIError is a non-2xx backend response surfaced to callers. Callers are
// expected to branch on Status; Code is the optional backend error code.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend error %d: %s", e.Status, e.Message)
}

// AsAPIError unwraps err into an *APIError if possible.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
