package controllers

import (
	"errors"
	"net/http"

	"spinwheel/web/services"

	"github.com/gin-gonic/gin"
)

type VerifySignupInput struct {
	TempUserID string `json:"tempUserId" binding:"required,max=64"`
	OTP        string `json:"otp" binding:"required,len=6,numeric"`
}

type ResendSignupInput struct {
	TempUserID string `json:"tempUserId" binding:"required,max=64"`
}

func (ctl *Controller) VerifySignupOTP(c *gin.Context) {
	var body VerifySignupInput
	if !bindJSON(c, &body) {
		return
	}

	sess, err := ctl.accounts.VerifySignupCode(c.Request.Context(), body.TempUserID, body.OTP)
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid verification request or OTP expired"})
		return
	}
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Email verified successfully! Account created.",
		"token":   sess.Token,
		"user":    userJSON(sess.User),
	})
}

func (ctl *Controller) ResendSignupOTP(c *gin.Context) {
	var body ResendSignupInput
	if !bindJSON(c, &body) {
		return
	}

	id, err := ctl.accounts.ResendSignupCode(c.Request.Context(), body.TempUserID)
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid verification request or OTP expired"})
		return
	}
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "A new verification code has been sent to your email.",
		"tempUserId": id,
	})
}

// CheckResetToken lets the reset page reject a dead link before the user
// types a new password.
func (ctl *Controller) CheckResetToken(c *gin.Context) {
	if _, err := ctl.accounts.VerifyResetToken(c.Request.Context(), c.Param("token")); err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}
