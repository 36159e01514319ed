package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outbox counts relay outcomes per event type.
type Outbox struct {
	events *prometheus.CounterVec
}

func NewOutbox(reg prometheus.Registerer) *Outbox {
	if reg == nil {
		return &Outbox{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_total",
		Help:      "Outbox rows handled by the relay, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(events)
	return &Outbox{events: events}
}

// Record counts one row. outcome is published, retry or dead_lettered.
func (o *Outbox) Record(eventType, outcome string) {
	if o == nil || o.events == nil {
		return
	}
	o.events.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
