package llm

import "errors"

var (
	ErrEmptyResponse   = errors.New("model returned no choices")
	ErrMalformedOutput = errors.New("model output does not match the requested schema")
	ErrMissingAPIKey   = errors.New("api key is required")
)
