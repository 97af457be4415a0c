package daadminx

import (
	"errors"
	"fmt"
)

var (
	ErrUnexpectedState = errors.New("unexpected resource state")
)

// ServerError is any DevOps response with a 4xx/5xx status. There is no
// 401 special-case here; DevOps auth failures surface as ordinary 4xx.
type ServerError struct {
	StatusCode int
	Body       []byte
}

func (e ServerError) Error() string {
	return fmt.Sprintf("devops api error: unexpected response status %d", e.StatusCode)
}

// UnexpectedStateError is raised by polling loops when a resource reports
// a status outside the set the operation allows.
type UnexpectedStateError struct {
	ResourceID    string
	ActualState   string
	AllowedStates []string
}

func (e UnexpectedStateError) Error() string {
	return fmt.Sprintf("resource %s entered unexpected state %q (allowed: %v)",
		e.ResourceID, e.ActualState, e.AllowedStates)
}

func (e UnexpectedStateError) Unwrap() error {
	return ErrUnexpectedState
}
