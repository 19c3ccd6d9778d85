package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrValidation         = errors.New("record rejected by the store")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNoSession          = errors.New("no stored session")
	ErrResourceUnknown    = errors.New("unknown resource")
)
