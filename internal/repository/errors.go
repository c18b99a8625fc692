package repository

import "errors"

// ErrVersionConflict signals a lost optimistic-concurrency race: the row was
// modified since the caller read it.
var ErrVersionConflict = errors.New("version conflict")
