package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/errors"
)

// remoteError is the failure envelope returned by JSON APIs that follow the
// same {"success":false,"code","message"} shape as this service.
type remoteError struct {
	Success *bool  `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// converts it to an AppError where the status has a meaning here.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", service, resp.StatusCode, err)
	}

	var remote remoteError
	if json.Unmarshal(body, &remote) != nil || remote.Message == "" {
		return fmt.Errorf("%s returned status %d: %s", service, resp.StatusCode, body)
	}

	msg := service + ": " + remote.Message
	switch {
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(msg)
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.Unauthorized(msg)
	case resp.StatusCode == http.StatusForbidden:
		return apperrors.Forbidden(msg)
	case resp.StatusCode == http.StatusConflict:
		return apperrors.Conflict(msg)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return apperrors.Unavailable(msg)
	default:
		return fmt.Errorf("%s returned status %d (%s): %s", service, resp.StatusCode, remote.Code, remote.Message)
	}
}
