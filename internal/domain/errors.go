package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy. Handlers map these to status codes with errors.Is.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("not allowed to act on this resource")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUpstream        = errors.New("upstream service failure")
	ErrStorage         = errors.New("storage failure")
)

// ErrInactiveAccount is an Unauthenticated error for disabled users.
var ErrInactiveAccount = fmt.Errorf("%w: inactive account", ErrUnauthenticated)
