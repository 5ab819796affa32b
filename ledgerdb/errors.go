package ledgerdb

import "errors"

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("not found")
