package queue

import "github.com/pkg/errors"

var (
	ErrNullQueue   = errors.New("queue is nil")
	ErrEmptyQueue  = errors.New("queue is empty")
	ErrAllocFailed = errors.New("allocation failed")
	ErrCorrupt     = errors.New("queue is corrupt")
)
