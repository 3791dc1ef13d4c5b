package game

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics метрики тика сервера
type Metrics struct {
	ticks         prometheus.Counter
	tickDuration  prometheus.Histogram
	sessions      prometheus.Gauge
	published     *prometheus.CounterVec
	publishErrors prometheus.Counter
	violations    prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg (nil: без регистрации)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockworld",
			Subsystem: "server",
			Name:      "ticks_total",
			Help:      "Количество выполненных тиков.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "blockworld",
			Subsystem: "server",
			Name:      "tick_duration_seconds",
			Help:      "Длительность тика.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blockworld",
			Subsystem: "server",
			Name:      "sessions",
			Help:      "Подключённые сессии.",
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockworld",
			Subsystem: "server",
			Name:      "published_total",
			Help:      "Опубликованные в шину конверты по типу.",
		}, []string{"type"}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockworld",
			Subsystem: "server",
			Name:      "publish_errors_total",
			Help:      "Ошибки публикации в шину.",
		}),
		violations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockworld",
			Subsystem: "server",
			Name:      "invariant_violations_total",
			Help:      "Нарушения инварианта block entity, пойманные маршрутизатором.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ticks, m.tickDuration, m.sessions, m.published, m.publishErrors, m.violations)
	}
	return m
}
