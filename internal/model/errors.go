package model

import "errors"

var (
	ErrMalformedBoundary = errors.New("malformed boundary data")
	ErrNameCollision     = errors.New("boundary name collision")
	ErrOutsideCoverage   = errors.New("point outside coverage")
	ErrAreaNotFound      = errors.New("area not found")
	ErrNotReady          = errors.New("boundary data not loaded")
	ErrStale             = errors.New("stale response discarded")
)
