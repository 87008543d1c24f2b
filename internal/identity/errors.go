package identity

import "github.com/paywave/paywave/internal/apperr"

var (
	ErrUserNotFound = apperr.New(apperr.KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrUserExists   = apperr.New(apperr.KindBusinessRule, "USER_EXISTS", "a user with this email or username already exists")
	ErrPINNotSet    = apperr.New(apperr.KindBusinessRule, "PIN_NOT_SET", "transaction PIN has not been set")
	ErrInvalidPIN   = apperr.New(apperr.KindBusinessRule, "INVALID_PIN", "incorrect transaction PIN")
)
