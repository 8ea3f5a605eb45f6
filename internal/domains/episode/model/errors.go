package model

import "errors"

// ErrEpisodeNotFound is the expected miss outcome: callers branch on it
// and it is never logged as an error.
var ErrEpisodeNotFound = errors.New("episode not found")

// ErrStorageNotConfigured means cloud uploads were selected but the
// object-storage settings are incomplete.
var ErrStorageNotConfigured = errors.New("cloud storage configuration is incomplete")
