package app

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edurotich/smartplanner/internal/config"
	httpx "github.com/edurotich/smartplanner/internal/http"
	"github.com/edurotich/smartplanner/internal/http/handlers"
	"github.com/edurotich/smartplanner/internal/http/middleware"
)

func Run(cfg *config.Config) error {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	c, err := NewContainer(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	authH := handlers.NewAuthHandlers(c.AuthSvc, c.Ledger, cfg.LoginCost)
	payH := handlers.NewPaymentHandlers(c.PaymentSvc)

	sessionMW := middleware.SessionMiddleware(c.AuthSvc)
	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer limiter.Stop()

	r := httpx.BuildRouter(authH, payH, sessionMW, limiter)

	addr := ":" + cfg.Port
	log.Printf("listening on %s", addr)
	return http.ListenAndServe(addr, r)
}
