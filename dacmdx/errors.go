package dacmdx

import (
	"errors"
	"fmt"
)

var (
	ErrAuthentication     = errors.New("authentication failure")
	ErrCollectionNotFound = errors.New("collection does not exist")
)

// ErrorDescriptor is one entry of a response envelope's errors array.
// Any attributes beyond the well-known pair are kept verbatim.
type ErrorDescriptor struct {
	ErrorCode  string
	Message    string
	Attributes map[string]interface{}
}

func (d ErrorDescriptor) String() string {
	if d.ErrorCode != "" {
		return fmt.Sprintf("%s: %s", d.ErrorCode, d.Message)
	}
	return d.Message
}

// DetailedErrorDescriptor groups one failed HTTP call's parsed errors with
// the command that produced them and the raw envelope, for aggregation into
// partial-failure errors by multi-call operations.
type DetailedErrorDescriptor struct {
	Errors      []ErrorDescriptor
	Command     map[string]interface{}
	RawResponse *RawResponse
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e HTTPError) Error() string {
	return fmt.Sprintf("unexpected http response status %d", e.StatusCode)
}

// ResponseError is raised whenever the envelope carries a non-empty errors
// array, regardless of the HTTP status code.
type ResponseError struct {
	Descriptors []ErrorDescriptor
	RawResponse *RawResponse
}

func (e ResponseError) Error() string {
	if len(e.Descriptors) == 0 {
		return "command failed"
	}
	if len(e.Descriptors) == 1 {
		return fmt.Sprintf("command failed: %s", e.Descriptors[0])
	}
	return fmt.Sprintf("command failed: %s (+ %d other errors)", e.Descriptors[0], len(e.Descriptors)-1)
}

type AuthenticationError struct {
	ResponseError
}

func (e AuthenticationError) Unwrap() error {
	return ErrAuthentication
}

type CollectionNotFoundError struct {
	ResponseError
	CollectionName string
}

func (e CollectionNotFoundError) Error() string {
	return fmt.Sprintf("collection %q does not exist", e.CollectionName)
}

func (e CollectionNotFoundError) Unwrap() error {
	return ErrCollectionNotFound
}
