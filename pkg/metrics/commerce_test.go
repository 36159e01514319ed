package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCommerceExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCommerce(reg)
	m.CartMutation("add_item", "ok")
	m.CartMutation("add_item", "ok")
	m.CartMutation("add_item", "BELOW_MINIMUM_ORDER")
	m.OrderCreated("transfer")
	m.OrderTransition("paid")
	m.CatalogRelease("")
	m.ObserveCheckout(120 * time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "siver_cart_mutations_total", "result", "ok"); err != nil {
		t.Fatalf("fetch cart mutations: %v", err)
	} else if got != 2 {
		t.Fatalf("expected 2 ok mutations, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "siver_orders_created_total", "payment_method", "transfer"); err != nil || got != 1 {
		t.Fatalf("expected 1 transfer order, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "siver_catalog_releases_total", "result", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected empty label normalized to unknown, got %f (%v)", got, err)
	}
	if mf := findMetricFamily(mfs, "siver_checkout_duration_seconds"); mf == nil {
		t.Fatalf("expected checkout histogram")
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var m *Commerce
	m.CartMutation("add_item", "ok")
	m.OrderCreated("stripe")
	NewCommerce(nil).OrderTransition("paid")
	var h *HTTP
	h.Observe("/x", "GET", 200, time.Millisecond)
}

func TestHTTPObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHTTP(reg)
	h.Observe("/api/v1/cart", "GET", 200, 5*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "siver_http_requests_total", "status", "200"); err != nil || got != 1 {
		t.Fatalf("expected one 200 request, got %f (%v)", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "siver_http_request_duration_seconds", "route", "/api/v1/cart"); err != nil || got <= 0 {
		t.Fatalf("expected latency sum > 0, got %f (%v)", got, err)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}

func TestOutboxRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := NewOutbox(reg)
	o.Record("order_paid", "published")
	o.Record("order_paid", "published")
	o.Record("order_created", "dead_lettered")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "siver_outbox_events_total", "outcome", "dead_lettered"); err != nil || got != 1 {
		t.Fatalf("expected one dead lettered row, got %f (%v)", got, err)
	}

	var nilOutbox *Outbox
	nilOutbox.Record("order_paid", "retry")
}
