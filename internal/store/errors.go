package store

import "errors"

var (
	ErrNotFound     = errors.New("store: resource not found")
	ErrDuplicate    = errors.New("store: duplicate resource")
	ErrDimension    = errors.New("store: vector dimension mismatch")
	ErrInvalidInput = errors.New("store: invalid input")
)
