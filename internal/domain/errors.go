package domain

import "errors"

var (
	ErrTransport    = errors.New("transport error")
	ErrDecode       = errors.New("decode error")
	ErrAuth         = errors.New("unauthorized")
	ErrConfig       = errors.New("invalid configuration")
	ErrNotConnected = errors.New("not connected")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
)
