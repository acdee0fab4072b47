package chart

import "errors"

var (
	ErrSessionNotFound = errors.New("chart session not found")
	ErrSessionClosed   = errors.New("chart session closed")
	ErrEmptySelection  = errors.New("no seats selected")
	ErrUnknownGesture  = errors.New("unknown gesture kind")
	ErrSectionNotFound = errors.New("section not found")
)
