package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"spinwheel/web/middleware"
	"spinwheel/web/services"

	"github.com/gin-gonic/gin"
)

func (ctl *Controller) Spin(c *gin.Context) {
	var body struct {
		SelectedOfferIndex *int `json:"selectedOfferIndex"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	coupon, err := ctl.coupons.Spin(c.Request.Context(), middleware.CurrentUser(c), body.SelectedOfferIndex)
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Congratulations! You won a coupon!",
		"coupon":  couponJSON(coupon, time.Now()),
	})
}

func (ctl *Controller) MyCoupons(c *gin.Context) {
	list, err := ctl.coupons.ListForUser(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	now := time.Now()
	c.JSON(http.StatusOK, gin.H{
		"activeCoupons":      couponsJSON(list.Active, now),
		"usedExpiredCoupons": couponsJSON(list.UsedOrExpired, now),
		"totalCoupons":       list.Total,
	})
}

func (ctl *Controller) UseCoupon(c *gin.Context) {
	id, ok := couponID(c)
	if !ok {
		return
	}

	coupon, err := ctl.coupons.Redeem(c.Request.Context(), id, middleware.CurrentUser(c).ID)
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Coupon not found"})
		return
	}
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon used successfully!",
		"coupon":  couponJSON(coupon, time.Now()),
	})
}

// VerifyCoupon is the staff lookup by printed code. It does not redeem.
func (ctl *Controller) VerifyCoupon(c *gin.Context) {
	coupon, err := ctl.coupons.VerifyByCode(c.Request.Context(), c.Param("code"))
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid coupon code"})
		return
	}
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	view := couponJSON(coupon, time.Now())
	view["user"] = gin.H{"name": coupon.User.Name, "email": coupon.User.Email}
	c.JSON(http.StatusOK, gin.H{"coupon": view})
}

func (ctl *Controller) CouponQR(c *gin.Context) {
	id, ok := couponID(c)
	if !ok {
		return
	}

	png, err := ctl.coupons.QRCode(c.Request.Context(), id, middleware.CurrentUser(c).ID)
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Coupon not found"})
		return
	}
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (ctl *Controller) SheetsURL(c *gin.Context) {
	url := ctl.coupons.SheetURL()
	if url == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Google Sheets not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Offers lists the wheel segments in index order.
func (ctl *Controller) Offers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"offers": ctl.coupons.Catalog().All()})
}

// couponID parses :id. Malformed ids get the same 404 as unknown ones.
func couponID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Coupon not found"})
		return 0, false
	}
	return uint(id), true
}
