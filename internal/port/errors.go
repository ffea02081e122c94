package port

import "errors"

// Sentinel errors used across ports.
var (
	ErrUnknownWisdomLevel    = errors.New("unknown wisdom level")
	ErrUnknownLocale         = errors.New("unknown locale")
	ErrMalformedChunkPayload = errors.New("malformed chunk payload")
	ErrReferenceInUse        = errors.New("stream reference already in use")
	ErrUnsupportedFormat     = errors.New("unsupported document format")
	ErrEmptyResource         = errors.New("resource has no extractable text")
	ErrInvalidRequest        = errors.New("invalid request")
)
