package services

import "errors"

// Domain errors are expected outcomes: handlers map them straight to 4xx
// responses with a human-readable message. Anything else coming out of a
// service is an infrastructure fault and maps to a generic 500.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrNotAccepting    = errors.New("user is not accepting messages")
	ErrMessageNotFound = errors.New("message not found or already deleted")

	ErrUsernameTaken      = errors.New("username is already taken")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrNotVerified        = errors.New("account is not verified")
	ErrCodeInvalid        = errors.New("incorrect verification code")
	ErrCodeExpired        = errors.New("verification code has expired")

	ErrGeneratorTimeout = errors.New("suggestion generator timed out")
)
