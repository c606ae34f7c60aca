package domain

import "errors"

// ErrProfileNotFound is returned by profile stores when no active profile has the id.
var ErrProfileNotFound = errors.New("profile not found")
