package router

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics счётчики маршрутизатора событий
type Metrics struct {
	events     *prometheus.CounterVec
	dispatches prometheus.Histogram
}

// NewMetrics создаёт метрики и регистрирует их в reg (nil: без регистрации)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockworld",
			Subsystem: "router",
			Name:      "events_total",
			Help:      "Обработанные входящие события по типу и результату.",
		}, []string{"type", "outcome"}),
		dispatches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "blockworld",
			Subsystem: "router",
			Name:      "batch_size",
			Help:      "Размер пачки событий за тик.",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.events, m.dispatches)
	}
	return m
}

func (m *Metrics) observe(eventType, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) observeBatch(size int) {
	if m == nil {
		return
	}
	m.dispatches.Observe(float64(size))
}
