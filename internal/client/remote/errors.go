package remote

import "errors"

var (
	ErrUnavailable  = errors.New("remote unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("row owned by another user")
	ErrNotFound     = errors.New("remote row not found")
)
