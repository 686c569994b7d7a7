package storage

import "errors"

// ErrKeyNotFound is returned by Get when the key has never been written.
// Both backends normalise their miss conditions to this error so callers can
// treat an absent ledger entry as a zero balance.
var ErrKeyNotFound = errors.New("storage: key not found")
