package storage

import "errors"

var (
	ErrStorageFull   = errors.New("segment storage is full")
	ErrShortFrame    = errors.New("short frame read from segment log")
	ErrIndexEntryBad = errors.New("malformed index entry")
)
