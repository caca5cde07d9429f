// Package metrics records per-run counters in a private Prometheus
// registry that can be written out as a node_exporter textfile.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registry *prometheus.Registry

	FilesScanned prometheus.Counter
	FilesPlaced  prometheus.Counter
	FilesSkipped *prometheus.CounterVec
	TagsOmitted  *prometheus.CounterVec
	Conflicts    *prometheus.CounterVec
	FilteredOut  *prometheus.CounterVec

	Studies   prometheus.Gauge
	Series    prometheus.Gauge
	Instances prometheus.Gauge

	RunDuration prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		FilesScanned: factory.NewCounter(prometheus.CounterOpts{
			Name: "dicom_tree_files_scanned_total",
			Help: "Files read from the input directory",
		}),
		FilesPlaced: factory.NewCounter(prometheus.CounterOpts{
			Name: "dicom_tree_files_placed_total",
			Help: "Files placed in the study hierarchy",
		}),
		FilesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dicom_tree_files_skipped_total",
			Help: "Files left out of the hierarchy",
		}, []string{"reason"}),
		TagsOmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dicom_tree_tags_omitted_total",
			Help: "Configured tags present in a file but not decoded",
		}, []string{"reason"}),
		Conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dicom_tree_conflicts_total",
			Help: "Files naming a different parent than the first placement",
		}, []string{"level"}),
		FilteredOut: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dicom_tree_filtered_out_total",
			Help: "Tree nodes removed by the filter file",
		}, []string{"level"}),
		Studies: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dicom_tree_studies",
			Help: "Distinct studies in the last run",
		}),
		Series: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dicom_tree_series",
			Help: "Distinct series in the last run",
		}),
		Instances: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dicom_tree_instances",
			Help: "Distinct instances in the last run",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dicom_tree_run_duration_seconds",
			Help:    "Time taken to scan a directory",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
		}),
	}
}

func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
