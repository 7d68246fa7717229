package erp

import "errors"

// Sentinel errors for the silverbook domain.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrBadRequest = errors.New("bad request")
	ErrBackend    = errors.New("backend error")
)
