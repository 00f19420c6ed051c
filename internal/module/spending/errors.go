package spending

import "errors"

// Module errors.
var (
	ErrLimitBlocked    = errors.New("spending limit blocked")
	ErrLimitNotFound   = errors.New("spending limit not found")
	ErrInvalidPeriod   = errors.New("invalid limit period")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidCategory = errors.New("invalid spend category")
)
