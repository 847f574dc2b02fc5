package clientcli

import "errors"

// Errors for profile operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoProfiles      = errors.New("no profiles configured")
	ErrProfileExists   = errors.New("profile already exists")
)

// Errors for configuration validation.
var (
	ErrTokenRequired  = errors.New("token is required")
	ErrConfigRequired = errors.New("config is required")
)

// Errors for input validation.
var (
	ErrNoIdentifiers     = errors.New("no report identifiers provided")
	ErrEmptyIdentifier   = errors.New("report identifier is required")
	ErrEmptyPath         = errors.New("path is required")
	ErrMissingIdentifier = errors.New("server response has no report identifier")
)
