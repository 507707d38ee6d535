package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCheckoutMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCheckoutMetrics(reg)

	metrics.IncCheckout("success")
	metrics.IncCheckout("gateway_error")
	metrics.IncVerification("verified")
	metrics.IncStockConflict()
	metrics.ObserveGatewayLatency(120 * time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "checkout_attempts_total", "outcome", "success"); err != nil {
		t.Fatalf("fetch checkout success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected checkout success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "checkout_attempts_total", "outcome", "gateway_error"); err != nil {
		t.Fatalf("fetch checkout gateway_error: %v", err)
	} else if got != 1 {
		t.Fatalf("expected checkout gateway_error=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "payment_verifications_total", "outcome", "verified"); err != nil {
		t.Fatalf("fetch verification: %v", err)
	} else if got != 1 {
		t.Fatalf("expected verification=1, got %f", got)
	}

	if mf := findMetricFamily(mfs, "inventory_stock_conflicts_total"); mf == nil {
		t.Fatal("stock conflict counter not registered")
	} else if mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected stock conflicts=1")
	}

	if mf := findMetricFamily(mfs, "payment_gateway_latency_seconds"); mf == nil {
		t.Fatal("gateway latency histogram not registered")
	} else if mf.GetMetric()[0].GetHistogram().GetSampleSum() <= 0 {
		t.Fatalf("expected latency sum > 0")
	}
}

func TestCheckoutMetricsNilRegistererIsNoop(t *testing.T) {
	metrics := NewCheckoutMetrics(nil)
	metrics.IncCheckout("success")
	metrics.IncVerification("verified")
	metrics.IncStockConflict()
	metrics.ObserveGatewayLatency(time.Millisecond)
}
