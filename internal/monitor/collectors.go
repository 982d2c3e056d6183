package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// collectors are registered on the monitor's own registry so several runs in
// one process never collide.
type collectors struct {
	tasksTotal        *prometheus.CounterVec
	taskDuration      prometheus.Histogram
	eta               prometheus.Gauge
	stringsTranslated prometheus.Counter
	filesTotal        prometheus.Gauge
}

func newCollectors(reg prometheus.Registerer) *collectors {
	f := promauto.With(reg)
	return &collectors{
		tasksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "i18nbatch_tasks_total",
				Help: "Tasks that reached a terminal state",
			},
			[]string{"outcome"},
		),
		taskDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "i18nbatch_task_duration_seconds",
				Help:    "Duration of completed translation tasks",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
		),
		eta: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "i18nbatch_eta_seconds",
				Help: "Estimated time until every file is processed",
			},
		),
		stringsTranslated: f.NewCounter(
			prometheus.CounterOpts{
				Name: "i18nbatch_strings_translated_total",
				Help: "Strings produced by completed tasks",
			},
		),
		filesTotal: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "i18nbatch_files_total",
				Help: "Files in the current session",
			},
		),
	}
}
