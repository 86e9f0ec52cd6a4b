// Package channel defines domain-specific errors
package channel

import "errors"

var (
	ErrUnknownReducer = errors.New("unknown reducer type")
	ErrEmptyKey       = errors.New("state key cannot be empty")
)
