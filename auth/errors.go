package auth

import "errors"

var (
	ErrDuplicateUsername = errors.New("auth: username already exists")
	// ErrAuthFailure covers unknown users and wrong passwords alike
	ErrAuthFailure      = errors.New("auth: invalid credentials")
	ErrInvalidToken     = errors.New("auth: invalid token")
	ErrMissingSession   = errors.New("auth: missing session id")
	ErrMalformedSession = errors.New("auth: malformed session id")
	ErrUnknownSession   = errors.New("auth: session id was not issued to this user")
	ErrPasswordTooLong  = errors.New("auth: password too long")
)
