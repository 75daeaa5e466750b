package domain

import "errors"

// The engine has exactly two business failures. Both are terminal for the
// request, and Forbidden must not reveal whether the id exists for another
// tenant.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)
