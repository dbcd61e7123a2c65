package recorder

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	unitsDesc = prometheus.NewDesc(
		"evoprobe_units",
		"Number of instrumented modules.",
		nil, nil,
	)
	objectivesDesc = prometheus.NewDesc(
		"evoprobe_objectives",
		"Number of registered objectives by kind.",
		[]string{"kind"}, nil,
	)
	coveredDesc = prometheus.NewDesc(
		"evoprobe_objectives_covered",
		"Number of registered objectives fully covered in the current search.",
		nil, nil,
	)
)

// Collector exposes the recorder inventory as Prometheus metrics.
type Collector struct {
	recorder *Recorder
}

// NewCollector creates a collector reading from r at scrape time.
func NewCollector(r *Recorder) *Collector {
	return &Collector{recorder: r}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- unitsDesc
	ch <- objectivesDesc
	ch <- coveredDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	info := c.recorder.UnitsInfo()

	ch <- prometheus.MustNewConstMetric(unitsDesc, prometheus.GaugeValue, float64(len(info.UnitNames)))
	ch <- prometheus.MustNewConstMetric(objectivesDesc, prometheus.GaugeValue, float64(info.NumberOfLines), "line")
	ch <- prometheus.MustNewConstMetric(objectivesDesc, prometheus.GaugeValue, float64(info.NumberOfStatements), "statement")
	ch <- prometheus.MustNewConstMetric(objectivesDesc, prometheus.GaugeValue, float64(info.NumberOfBranches), "branch")
	ch <- prometheus.MustNewConstMetric(coveredDesc, prometheus.GaugeValue, float64(c.recorder.covered()))
}
