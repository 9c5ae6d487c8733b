package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"spinwheel/web/db"
	"spinwheel/web/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Controller struct {
	accounts *services.Accounts
	coupons  *services.Coupons
	db       Pinger
	log      *zap.Logger
	// debug adds internal error text to 5xx responses
	debug bool
}

func New(accounts *services.Accounts, coupons *services.Coupons, db Pinger, log *zap.Logger, debug bool) *Controller {
	return &Controller{accounts: accounts, coupons: coupons, db: db, log: log, debug: debug}
}

var messages = map[error]string{
	services.ErrDuplicateIdentity:     "User with this email already exists",
	services.ErrInvalidCredentials:    "Invalid email or password",
	services.ErrEmailNotVerified:      "Please verify your email before logging in",
	services.ErrAccountInactive:       "Account is deactivated",
	services.ErrCodeExpired:           "OTP has expired. Please try signup again.",
	services.ErrCodeMismatch:          "Invalid OTP. Please try again.",
	services.ErrInvalidOrExpiredToken: "Invalid or expired reset token. Please request a new one.",
	services.ErrDispatchFailed:        "Failed to send email. Please try again.",
	services.ErrServiceUnavailable:    "Database connection not available. Please try again later.",
	services.ErrDailyLimitReached:     "You have already spun the wheel today. Come back tomorrow for another chance!",
	services.ErrInvalidOfferIndex:     "Invalid offer selected",
	services.ErrAlreadyUsedOrExpired:  "Coupon is already used or expired",
	services.ErrUnauthorized:          "Not authorized",
	services.ErrNotFound:              "Not found",
	services.ErrPersistence:           "Server error, please try again",
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrDuplicateIdentity),
		errors.Is(err, services.ErrCodeExpired),
		errors.Is(err, services.ErrCodeMismatch),
		errors.Is(err, services.ErrInvalidOrExpiredToken),
		errors.Is(err, services.ErrDailyLimitReached),
		errors.Is(err, services.ErrInvalidOfferIndex),
		errors.Is(err, services.ErrAlreadyUsedOrExpired):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized),
		errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrEmailNotVerified),
		errors.Is(err, services.ErrAccountInactive):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	if errors.Is(err, services.ErrValidation) {
		return err.Error()
	}
	for target, msg := range messages {
		if errors.Is(err, target) {
			return msg
		}
	}
	return "Server error"
}

func (ctl *Controller) respondError(c *gin.Context, err error) {
	ctl.respondErrorStatus(c, statusFor(err), messageFor(err), err)
}

func (ctl *Controller) respondErrorStatus(c *gin.Context, status int, msg string, err error) {
	body := gin.H{"error": msg}
	if status >= http.StatusInternalServerError {
		ctl.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
		if ctl.debug {
			body["detail"] = err.Error()
		}
	}
	c.JSON(status, body)
}

func userJSON(u *db.User) gin.H {
	now := time.Now()
	coupons := make([]gin.H, 0, len(u.Coupons))
	for i := range u.Coupons {
		coupons = append(coupons, couponJSON(&u.Coupons[i], now))
	}
	return gin.H{
		"id":              u.ID,
		"name":            u.Name,
		"email":           u.Email,
		"isEmailVerified": u.IsEmailVerified,
		"coupons":         coupons,
		"createdAt":       u.CreatedAt,
	}
}

func couponJSON(c *db.Coupon, now time.Time) gin.H {
	return gin.H{
		"id":               c.ID,
		"code":             c.Code,
		"offerType":        c.OfferType,
		"offerDescription": c.OfferDescription,
		"conditions":       c.Conditions,
		"isUsed":           c.IsUsed,
		"usedAt":           c.UsedAt,
		"isActive":         c.IsActive,
		"expiresAt":        c.ExpiresAt,
		"createdAt":        c.CreatedAt,
		"isExpired":        c.IsExpired(now),
		"isValidForUse":    c.IsValidForUse(now),
	}
}

func couponsJSON(list []db.Coupon, now time.Time) []gin.H {
	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, couponJSON(&list[i], now))
	}
	return out
}
