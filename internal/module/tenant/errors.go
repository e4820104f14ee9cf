package tenant

import "errors"

// Module errors.
var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrSlugTaken      = errors.New("tenant slug already taken")
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailTaken     = errors.New("email already registered for tenant")
	ErrClientNotFound = errors.New("client not found")
)
