package nbt

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated      = errors.New("unexpected end of input")
	ErrUnknownKind    = errors.New("unknown tag kind")
	ErrListKind       = errors.New("list element kind mismatch")
	ErrNegativeLength = errors.New("negative length")
	ErrTooDeep        = errors.New("nesting too deep")
	ErrRootKind       = errors.New("root tag is not a compound")
	ErrEncoding       = errors.New("invalid item bytes encoding")
)

// DecodeError reports where decoding failed.
type DecodeError struct {
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("nbt decode at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
