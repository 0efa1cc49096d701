package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector tracks transfer activity for the status endpoint. A nil
// Collector is valid and records nothing.
type Collector struct {
	registry  *prometheus.Registry
	downloads *prometheus.CounterVec
	bytes     prometheus.Counter
	inFlight  prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediapull_downloads_total",
			Help: "Download attempts by result.",
		}, []string{"result"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mediapull_download_bytes_total",
			Help: "Bytes written to local storage.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mediapull_transfers_in_flight",
			Help: "Transfers currently streaming.",
		}),
	}
	c.registry.MustRegister(c.downloads, c.bytes, c.inFlight)
	return c
}

// Gatherer exposes the collector's registry for the /metrics handler.
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return prometheus.NewRegistry()
	}
	return c.registry
}

func (c *Collector) TransferStarted() {
	if c == nil {
		return
	}
	c.inFlight.Inc()
}

func (c *Collector) TransferFinished() {
	if c == nil {
		return
	}
	c.inFlight.Dec()
}

func (c *Collector) ObserveOutcome(success bool, bytes int64) {
	if c == nil {
		return
	}
	if success {
		c.downloads.WithLabelValues("success").Inc()
		c.bytes.Add(float64(bytes))
		return
	}
	c.downloads.WithLabelValues("failure").Inc()
}
