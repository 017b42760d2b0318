package verification

import "errors"

// ErrAccountNotFound is returned when the account is not in the directory
var ErrAccountNotFound = errors.New("account not found")
