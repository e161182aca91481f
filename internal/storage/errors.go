package storage

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("version conflict")
	ErrConfiguration = errors.New("organization is not configured")
	ErrDuplicate     = errors.New("already exists")
)
