package stacks

import "errors"

var (
	ErrNotFound        = errors.New("stacks: not found")
	ErrNoLoader        = errors.New("stacks: no loader registered")
	ErrLoaderExists    = errors.New("stacks: loader already registered")
	ErrMount           = errors.New("stacks: open nested store")
	ErrInvalidArgument = errors.New("stacks: invalid argument")
	ErrClosed          = errors.New("stacks: library closed")
)
