package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/edurotich/smartplanner/domain"
	"github.com/edurotich/smartplanner/internal/config"
	"github.com/edurotich/smartplanner/internal/infrastructure/database"
	"github.com/edurotich/smartplanner/internal/infrastructure/notifications"
	"github.com/edurotich/smartplanner/internal/infrastructure/payments"
	"github.com/edurotich/smartplanner/internal/infrastructure/repositories"
	"github.com/edurotich/smartplanner/internal/metrics"
	"github.com/edurotich/smartplanner/internal/services"
)

// Container holds all dependencies
type Container struct {
	// Config
	Config *config.Config

	// Infrastructure
	DB          *gorm.DB
	RedisClient *redis.Client

	// Repositories
	UserRepo    domain.UserRepository
	Ledger      domain.TokenLedger
	SessionRepo domain.SessionRepository
	PaymentRepo domain.PaymentRepository
	Throttle    domain.OTPThrottle

	// Gateways
	SMSSvc  domain.SMSService
	Gateway domain.PaymentGateway

	// Observability
	Recorder metrics.Recorder

	// Services
	AuthSvc    domain.AuthService
	PaymentSvc domain.PaymentService
}

// NewContainer creates and initializes all dependencies
func NewContainer(cfg *config.Config) (*Container, error) {
	container := &Container{Config: cfg}

	if err := container.initDatabase(); err != nil {
		return nil, err
	}
	if err := container.initRedis(); err != nil {
		return nil, err
	}

	container.initRepositories()
	container.initGateways()
	container.initServices()

	return container, nil
}

func (c *Container) initDatabase() error {
	db, err := database.Open(c.Config.DSN)
	if err != nil {
		return err
	}
	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	c.DB = db
	return nil
}

func (c *Container) initRedis() error {
	rdb := database.NewRedis(c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB)
	if err := rdb.Ping(context.Background()); err != nil {
		return err
	}
	c.RedisClient = rdb.Client
	return nil
}

func (c *Container) initRepositories() {
	c.UserRepo = repositories.NewUserRepository(c.DB)
	c.Ledger = repositories.NewTokenLedger(c.DB)
	c.PaymentRepo = repositories.NewPaymentRepository(c.DB)
	c.SessionRepo = repositories.NewSessionRepository(c.RedisClient)
	c.Throttle = repositories.NewOTPThrottle(c.RedisClient, c.Config.OTP_ResendWindow)
}

func (c *Container) initGateways() {
	c.SMSSvc = notifications.NewTwilioService(
		c.Config.TwilioSID,
		c.Config.TwilioToken,
		c.Config.TwilioFrom,
		c.Config.SMSTimeout,
	)
	c.Gateway = payments.NewMpesaClient(payments.Config{
		BaseURL:        c.Config.MpesaBaseURL,
		ConsumerKey:    c.Config.MpesaKey,
		ConsumerSecret: c.Config.MpesaSecret,
		Shortcode:      c.Config.MpesaShortcode,
		Passkey:        c.Config.MpesaPasskey,
		CallbackURL:    c.Config.MpesaCallbackURL,
		Timeout:        c.Config.MpesaTimeout,
	})
}

func (c *Container) initServices() {
	if c.Recorder == nil {
		c.Recorder = metrics.NewCollector(prometheus.DefaultRegisterer)
	}

	c.AuthSvc = services.NewAuthService(
		c.UserRepo,
		c.Ledger,
		c.SessionRepo,
		c.SMSSvc,
		c.Throttle,
		c.Recorder,
		services.AuthConfig{
			OTPTTL:      c.Config.OTP_TTL,
			SessionTTL:  c.Config.SessionTTL,
			SignupGrant: c.Config.SignupGrant,
			LoginCost:   c.Config.LoginCost,
		},
	)

	c.PaymentSvc = services.NewPaymentService(
		c.UserRepo,
		c.PaymentRepo,
		c.Gateway,
		c.Recorder,
		c.Config.TokensPerKES,
	)
}

// Close closes all connections
func (c *Container) Close() error {
	if c.RedisClient != nil {
		c.RedisClient.Close()
	}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}
