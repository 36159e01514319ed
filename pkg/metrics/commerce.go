package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "siver"

// Commerce records cart, checkout, payment and catalog release activity.
type Commerce struct {
	cartMutations    *prometheus.CounterVec
	ordersCreated    *prometheus.CounterVec
	orderTransitions *prometheus.CounterVec
	catalogReleases  *prometheus.CounterVec
	checkoutDuration prometheus.Histogram
}

// NewCommerce registers the commerce metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func NewCommerce(reg prometheus.Registerer) *Commerce {
	if reg == nil {
		return &Commerce{}
	}
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_mutations_total",
		Help:      "Cart mutations by operation and outcome code.",
	}, []string{"operation", "result"})
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Orders assembled from carts by payment method.",
	}, []string{"payment_method"})
	orderTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_status_transitions_total",
		Help:      "Order payment status transitions by target status.",
	}, []string{"status"})
	catalogReleases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_releases_total",
		Help:      "Catalog release attempts by outcome.",
	}, []string{"result"})
	checkoutDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "checkout_duration_seconds",
		Help:      "Duration of order assembly in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
	reg.MustRegister(cartMutations, ordersCreated, orderTransitions, catalogReleases, checkoutDuration)
	return &Commerce{
		cartMutations:    cartMutations,
		ordersCreated:    ordersCreated,
		orderTransitions: orderTransitions,
		catalogReleases:  catalogReleases,
		checkoutDuration: checkoutDuration,
	}
}

// CartMutation counts a cart operation. result is "ok" or an error code.
func (c *Commerce) CartMutation(operation, result string) {
	if c == nil || c.cartMutations == nil {
		return
	}
	c.cartMutations.WithLabelValues(normalizeLabel(operation), normalizeLabel(result)).Inc()
}

func (c *Commerce) OrderCreated(paymentMethod string) {
	if c == nil || c.ordersCreated == nil {
		return
	}
	c.ordersCreated.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

func (c *Commerce) OrderTransition(status string) {
	if c == nil || c.orderTransitions == nil {
		return
	}
	c.orderTransitions.WithLabelValues(normalizeLabel(status)).Inc()
}

func (c *Commerce) CatalogRelease(result string) {
	if c == nil || c.catalogReleases == nil {
		return
	}
	c.catalogReleases.WithLabelValues(normalizeLabel(result)).Inc()
}

func (c *Commerce) ObserveCheckout(duration time.Duration) {
	if c == nil || c.checkoutDuration == nil {
		return
	}
	c.checkoutDuration.Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
