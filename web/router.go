package web

import (
	"spinwheel/web/controllers"
	"spinwheel/web/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Log         *zap.Logger
	CORSOrigins []string
	// AuthLimiter throttles the unauthenticated /auth endpoints per client IP.
	AuthLimiter *middleware.RateLimiter
	// TrustedProxies may set X-Forwarded-For. Empty trusts none, so the
	// limiter keys on the socket address.
	TrustedProxies []string
}

func NewRouter(ctl *controllers.Controller, auth middleware.Authenticator, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		cfg.Log.Error("invalid trusted proxies, trusting none", zap.Error(err))
		r.SetTrustedProxies(nil)
	}
	r.Use(middleware.Recovery(cfg.Log), middleware.RequestLogger(cfg.Log), middleware.CORS(cfg.CORSOrigins))

	requireAuth := middleware.RequireAuth(auth, cfg.Log)

	a := r.Group("/auth")
	if cfg.AuthLimiter != nil {
		a.Use(cfg.AuthLimiter.Middleware())
	}
	a.POST("/send-signup-otp", ctl.SendSignupOTP)
	a.POST("/resend-signup-otp", ctl.ResendSignupOTP)
	a.POST("/verify-signup-otp", ctl.VerifySignupOTP)
	a.POST("/login", ctl.Login)
	a.POST("/forgot-password", ctl.ForgotPassword)
	a.GET("/reset-password/:token", ctl.CheckResetToken)
	a.POST("/reset-password/:token", ctl.ResetPassword)
	a.GET("/profile", requireAuth, ctl.Profile)

	cp := r.Group("/coupons")
	cp.GET("/offers", ctl.Offers)
	cp.GET("/sheets-url", ctl.SheetsURL)
	cp.GET("/verify/:code", ctl.VerifyCoupon)
	cp.POST("/spin", requireAuth, ctl.Spin)
	cp.GET("/my-coupons", requireAuth, ctl.MyCoupons)
	cp.PUT("/:id/use", requireAuth, ctl.UseCoupon)
	cp.GET("/:id/qr", requireAuth, ctl.CouponQR)

	r.GET("/health", ctl.Health)
	return r
}
