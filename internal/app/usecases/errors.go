package usecases

import "errors"

var (
	ErrNoProcessor       = errors.New("no processor registered for node type")
	ErrUnknownFunction   = errors.New("no function registered for node")
	ErrUnknownRouter     = errors.New("no router registered for branch")
	ErrUnknownRoute      = errors.New("router returned a key with no target")
	ErrUnknownCondition  = errors.New("unknown edge condition")
)
