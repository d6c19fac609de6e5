package httpx

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edurotich/smartplanner/internal/http/handlers"
	"github.com/edurotich/smartplanner/internal/http/middleware"
)

func BuildRouter(ah *handlers.AuthHandlers, ph *handlers.PaymentHandlers, sessionMW gin.HandlerFunc, limiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/auth")
	auth.POST("/signup", limiter.Middleware(), ah.Signup)
	auth.POST("/verify-otp", ah.VerifySignupOTP)
	auth.POST("/login", limiter.Middleware(), ah.Login)
	auth.POST("/verify-login", ah.VerifyLoginOTP)

	// Daraja posts payment results here; it must stay unauthenticated
	r.POST("/mpesa/callback", ph.Callback)

	v := r.Group("/").Use(sessionMW)
	v.GET("/auth/me", ah.Me)
	v.POST("/auth/logout", ah.Logout)
	v.POST("/auth/refresh", ah.Refresh)
	v.GET("/tokens/balance", ah.Balance)
	v.POST("/mpesa/stkpush", ph.STKPush)
	v.GET("/mpesa/status/:id", ph.Status)

	return r
}
