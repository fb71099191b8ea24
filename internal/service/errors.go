package service

import "errors"

var (
	ErrCompanyNotFound    = errors.New("company not found")
	ErrCompanyExists      = errors.New("company already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrCompanyBlocked     = errors.New("company is blocked")
	ErrInvalidInput       = errors.New("invalid input")
	ErrCompanyNotPending  = errors.New("company is not pending review")
	ErrTooManyRequests    = errors.New("too many requests")
)
