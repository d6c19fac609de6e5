package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is the metrics surface the services depend on
type Recorder interface {
	OTPSent(flow string)
	OTPSendFailed(flow string)
	LoginSucceeded()
	TokenDebited(amount int64)
	TokenRefunded(amount int64)
	TokensCredited(amount int64)
	PaymentDuplicate()
	SessionReplaced()
}

// Collector implements Recorder on Prometheus counters
type Collector struct {
	otpSent         *prometheus.CounterVec
	otpSendFail     *prometheus.CounterVec
	logins          prometheus.Counter
	tokensDebited   prometheus.Counter
	tokensRefunded  prometheus.Counter
	tokensCredited  prometheus.Counter
	paymentDupes    prometheus.Counter
	sessionReplaced prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		otpSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartplanner_otp_sent_total",
			Help: "OTP SMS dispatches, by flow (signup/login)",
		}, []string{"flow"}),
		otpSendFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartplanner_otp_send_fail_total",
			Help: "Failed OTP SMS dispatches, by flow",
		}, []string{"flow"}),
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartplanner_logins_total",
			Help: "Completed login verifications",
		}),
		tokensDebited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartplanner_tokens_debited_total",
			Help: "Tokens debited for billable actions",
		}),
		tokensRefunded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartplanner_tokens_refunded_total",
			Help: "Tokens refunded after failed dispatch",
		}),
		tokensCredited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartplanner_tokens_credited_total",
			Help: "Tokens credited from mobile-money payments",
		}),
		paymentDupes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartplanner_payment_duplicates_total",
			Help: "Replayed payment callbacks ignored by receipt dedupe",
		}),
		sessionReplaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartplanner_sessions_replaced_total",
			Help: "Sessions issued (each replacing any prior session)",
		}),
	}

	reg.MustRegister(
		c.otpSent, c.otpSendFail, c.logins,
		c.tokensDebited, c.tokensRefunded, c.tokensCredited,
		c.paymentDupes, c.sessionReplaced,
	)
	return c
}

func (c *Collector) OTPSent(flow string)       { c.otpSent.WithLabelValues(flow).Inc() }
func (c *Collector) OTPSendFailed(flow string) { c.otpSendFail.WithLabelValues(flow).Inc() }
func (c *Collector) LoginSucceeded()           { c.logins.Inc() }
func (c *Collector) TokenDebited(amount int64) {
	c.tokensDebited.Add(float64(amount))
}
func (c *Collector) TokenRefunded(amount int64) {
	c.tokensRefunded.Add(float64(amount))
}
func (c *Collector) TokensCredited(amount int64) {
	c.tokensCredited.Add(float64(amount))
}
func (c *Collector) PaymentDuplicate() { c.paymentDupes.Inc() }
func (c *Collector) SessionReplaced()  { c.sessionReplaced.Inc() }

var _ Recorder = (*Collector)(nil)

// Nop is a Recorder that discards everything; used in tests
type Nop struct{}

func (Nop) OTPSent(string)        {}
func (Nop) OTPSendFailed(string)  {}
func (Nop) LoginSucceeded()       {}
func (Nop) TokenDebited(int64)    {}
func (Nop) TokenRefunded(int64)   {}
func (Nop) TokensCredited(int64)  {}
func (Nop) PaymentDuplicate()     {}
func (Nop) SessionReplaced()      {}

var _ Recorder = Nop{}
