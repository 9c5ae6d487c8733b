package controllers

import (
	"errors"
	"net/http"

	"spinwheel/web/middleware"
	"spinwheel/web/services"

	"github.com/gin-gonic/gin"
)

// Column sizes in web/db bound name and email; bcrypt bounds the password.
type SignupInput struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordInput struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordInput struct {
	NewPassword string `json:"newPassword" binding:"required,min=6,max=72"`
}

func (ctl *Controller) SendSignupOTP(c *gin.Context) {
	var body SignupInput
	if !bindJSON(c, &body) {
		return
	}

	id, err := ctl.accounts.StartSignup(c.Request.Context(), body.Name, body.Email, body.Password)
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Verification code sent to your email. Please check your inbox.",
		"tempUserId": id,
	})
}

func (ctl *Controller) Login(c *gin.Context) {
	var body LoginInput
	if !bindJSON(c, &body) {
		return
	}

	sess, err := ctl.accounts.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   sess.Token,
		"user":    userJSON(sess.User),
	})
}

func (ctl *Controller) ForgotPassword(c *gin.Context) {
	var body ForgotPasswordInput
	if !bindJSON(c, &body) {
		return
	}

	id, err := ctl.accounts.RequestPasswordReset(c.Request.Context(), body.Email)
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "No account found with this email address"})
		return
	case errors.Is(err, services.ErrEmailNotVerified):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please verify your email first"})
		return
	case err != nil:
		ctl.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Password reset link sent to your email. Please check your inbox.",
		"resetUserId": id,
	})
}

func (ctl *Controller) ResetPassword(c *gin.Context) {
	var body ResetPasswordInput
	if !bindJSON(c, &body) {
		return
	}

	if err := ctl.accounts.ResetPassword(c.Request.Context(), c.Param("token"), body.NewPassword); err != nil {
		ctl.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password reset successfully. You can now login with your new password.",
	})
}

func (ctl *Controller) Profile(c *gin.Context) {
	user, err := ctl.accounts.Profile(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userJSON(user)})
}
