package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics tracks the cart-to-order pipeline.
type CheckoutMetrics struct {
	checkouts      *prometheus.CounterVec
	verifications  *prometheus.CounterVec
	stockConflicts prometheus.Counter
	gatewayLatency prometheus.Histogram
}

// NewCheckoutMetrics registers checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verifications_total",
		Help: "Payment verification attempts by outcome.",
	}, []string{"outcome"})
	stockConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_stock_conflicts_total",
		Help: "Stock adjustments rejected because stock would go negative.",
	})
	gatewayLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_gateway_latency_seconds",
		Help:    "Latency of gateway order creation calls.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(checkouts, verifications, stockConflicts, gatewayLatency)
	return &CheckoutMetrics{
		checkouts:      checkouts,
		verifications:  verifications,
		stockConflicts: stockConflicts,
		gatewayLatency: gatewayLatency,
	}
}

// IncCheckout records a checkout attempt with the given outcome label.
func (m *CheckoutMetrics) IncCheckout(outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncVerification records a payment verification attempt.
func (m *CheckoutMetrics) IncVerification(outcome string) {
	if m == nil || m.verifications == nil {
		return
	}
	m.verifications.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncStockConflict counts a rejected stock adjustment.
func (m *CheckoutMetrics) IncStockConflict() {
	if m == nil || m.stockConflicts == nil {
		return
	}
	m.stockConflicts.Inc()
}

// ObserveGatewayLatency records how long a gateway round trip took.
func (m *CheckoutMetrics) ObserveGatewayLatency(d time.Duration) {
	if m == nil || m.gatewayLatency == nil {
		return
	}
	m.gatewayLatency.Observe(d.Seconds())
}
