package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ConfigurationError reports missing or invalid local configuration.
// It is raised before any request is issued.
type ConfigurationError struct {
	Key     string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Message)
}

// Configuration builds a ConfigurationError.
func Configuration(key, format string, args ...any) error {
	return &ConfigurationError{Key: key, Message: fmt.Sprintf(format, args...)}
}

// ValidationError reports invalid caller input detected locally.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Field == "" {
		return "validation error: " + msg
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, msg)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validation wraps a domain sentinel error as a ValidationError on field.
func Validation(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// Validationf builds a ValidationError with a formatted message.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// APIError is a non-2xx response from the remote API.
type APIError struct {
	Status  int
	Message string
	Code    string
	Type    string
	RawBody []byte
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	switch {
	case e.Status == http.StatusTooManyRequests:
		return fmt.Sprintf("rate limited (%d): %s", e.Status, msg)
	case e.Status == http.StatusNotFound:
		return fmt.Sprintf("not found (%d): %s", e.Status, msg)
	default:
		return fmt.Sprintf("api error (%d): %s", e.Status, msg)
	}
}

// TransportError wraps DNS, connection and timeout failures.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("connection failed: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a response body that is not the expected JSON.
type DecodeError struct {
	Status int
	Body   []byte
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response (%d): %v", e.Status, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// AsAPIError extracts an APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a remote 404.
func IsNotFound(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Status == http.StatusNotFound
}

// IsRateLimited reports whether err is a remote 429.
func IsRateLimited(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Status == http.StatusTooManyRequests
}

// Code returns the remote error code carried by err, if any.
func Code(err error) string {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return ""
	}
	return apiErr.Code
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var c *ConfigurationError
	return errors.As(err, &c)
}
