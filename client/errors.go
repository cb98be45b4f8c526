package client

import "errors"

var (
	// ErrKeyNotFound is returned by Get when the server reports a miss
	ErrKeyNotFound = errors.New("key not found")

	// ErrUnexpectedStatus is returned for any status the command does not expect
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrMalformedResponse is returned when a response body cannot be split into flags and value
	ErrMalformedResponse = errors.New("malformed response")
)
