package services

import "errors"

var (
	// ErrWatcherClosed is returned when a file is added to a closed watcher
	ErrWatcherClosed = errors.New("source watcher closed")
)
