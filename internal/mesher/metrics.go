package mesher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics - метрики построения и отрисовки пакетов.
// nil *Metrics допустим: все методы становятся пустыми.
type Metrics struct {
	quads   *prometheus.CounterVec
	build   prometheus.Histogram
	uploads prometheus.Counter
	skipped prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg, если он задан
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		quads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "mesher",
			Name:      "quads_total",
			Help:      "Число извлечённых граней по направлениям.",
		}, []string{"direction"}),
		build: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxel",
			Subsystem: "mesher",
			Name:      "build_duration_seconds",
			Help:      "Время извлечения граней одного пакета.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "mesher",
			Name:      "uploads_total",
			Help:      "Завершённые загрузки буферов направлений.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "mesher",
			Name:      "draws_skipped_total",
			Help:      "Отрисовки, пропущенные из-за неготовых буферов.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.quads, m.build, m.uploads, m.skipped)
	}
	return m
}

func (m *Metrics) observeBuild(counts [6]int, d time.Duration) {
	if m == nil {
		return
	}
	for _, dir := range Directions {
		m.quads.WithLabelValues(dir.String()).Add(float64(counts[dir]))
	}
	m.build.Observe(d.Seconds())
}

func (m *Metrics) uploadDone() {
	if m == nil {
		return
	}
	m.uploads.Inc()
}

func (m *Metrics) drawSkipped() {
	if m == nil {
		return
	}
	m.skipped.Inc()
}
