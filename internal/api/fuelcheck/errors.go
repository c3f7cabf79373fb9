package fuelcheck

import (
	"errors"
	"fmt"
)

// ErrEmptyToken is returned when the authentication endpoint answers
// successfully but no usable access token can be extracted.
var ErrEmptyToken = errors.New("could not extract access token from response")

// HTTPError is returned for a non-success response from the API.
type HTTPError struct {
	StatusCode int
	Body       string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// DecodeError is returned when a response body is not valid JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("parsing response JSON: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
