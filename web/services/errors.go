package services

import "errors"

var (
	ErrValidation            = errors.New("validation failed")
	ErrDuplicateIdentity     = errors.New("user with this email already exists")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrAccountInactive       = errors.New("account is deactivated")
	ErrNotFound              = errors.New("not found")
	ErrCodeExpired           = errors.New("verification code expired")
	ErrCodeMismatch          = errors.New("invalid verification code")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")
	ErrDispatchFailed        = errors.New("failed to send email")
	ErrServiceUnavailable    = errors.New("storage unavailable")
	ErrDailyLimitReached     = errors.New("already spun the wheel today")
	ErrInvalidOfferIndex     = errors.New("invalid offer index")
	ErrPersistence           = errors.New("failed to save")
	ErrAlreadyUsedOrExpired  = errors.New("coupon is already used or expired")
	ErrUnauthorized          = errors.New("unauthorized")
)
