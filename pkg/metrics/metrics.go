package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// HistogramBuckets are millisecond buckets shared by request and tick latencies.
var HistogramBuckets = []float64{
	25, 50, 75, 100, 150, 200, 300, 400, 500,
	750, 1000, 1250, 1500, 1750, 2000,
	2500, 3000, 4000, 5000, 7500, 10000, 15000,
	20000, 30000, 45000, 60000, 90000, 120000,
}

// Metric describes one collector. NewMetric builds it from Type.
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	Type            string
	Args            []string
}

// NewMetric associates prometheus.Collector based on Metric.Type
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	switch m.Type {
	case "counter_vec":
		return prometheus.NewCounterVec(prometheus.CounterOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description}, m.Args)
	case "counter":
		return prometheus.NewCounter(prometheus.CounterOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description})
	case "gauge_vec":
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description}, m.Args)
	case "histogram_vec":
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description, Buckets: HistogramBuckets}, m.Args)
	case "histogram":
		return prometheus.NewHistogram(prometheus.HistogramOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description, Buckets: HistogramBuckets})
	case "summary_vec":
		return prometheus.NewSummaryVec(prometheus.SummaryOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description}, m.Args)
	}
	return nil
}

var MetricsSpin = &Metric{
	ID:          "spinCnt",
	Name:        "spin_total",
	Description: "Resolved and rejected wheel spins, partitioned by result and reward type.",
	Type:        "counter_vec",
	Args:        []string{"result", "reward_type"},
}

var MetricsBirthdayDispatch = &Metric{
	ID:          "bdayDispatch",
	Name:        "dispatch_total",
	Description: "Birthday invitations per channel and outcome.",
	Type:        "counter_vec",
	Args:        []string{"channel", "result"},
}

var MetricsBirthdayTick = &Metric{
	ID:          "bdayTick",
	Name:        "tick_dur_ms",
	Description: "Birthday scheduler tick latency in milliseconds.",
	Type:        "histogram",
}

const (
	RefererKey = "X-Referer"
)

// Business holds the domain counters. A nil *Business records nothing.
type Business struct {
	spin     *prometheus.CounterVec
	dispatch *prometheus.CounterVec
	tick     prometheus.Histogram
}

// NewBusiness registers the domain collectors on reg, reusing collectors that
// are already registered.
func NewBusiness(reg prometheus.Registerer) (*Business, error) {
	spin, err := register(reg, NewMetric(MetricsSpin, "wheel"))
	if err != nil {
		return nil, err
	}
	dispatch, err := register(reg, NewMetric(MetricsBirthdayDispatch, "birthday"))
	if err != nil {
		return nil, err
	}
	tick, err := register(reg, NewMetric(MetricsBirthdayTick, "birthday"))
	if err != nil {
		return nil, err
	}
	return &Business{
		spin:     spin.(*prometheus.CounterVec),
		dispatch: dispatch.(*prometheus.CounterVec),
		tick:     tick.(prometheus.Histogram),
	}, nil
}

func register(reg prometheus.Registerer, c prometheus.Collector) (prometheus.Collector, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector, nil
		}
		return nil, err
	}
	return c, nil
}

func (b *Business) ObserveSpin(result, rewardType string) {
	if b == nil {
		return
	}
	b.spin.WithLabelValues(result, rewardType).Inc()
}

func (b *Business) ObserveDispatch(channel, result string) {
	if b == nil {
		return
	}
	b.dispatch.WithLabelValues(channel, result).Inc()
}

func (b *Business) ObserveTick(start time.Time) {
	if b == nil {
		return
	}
	b.tick.Observe(MillisecondsSince(start))
}

func newDefaultBusiness() (*Business, error) {
	return NewBusiness(prometheus.DefaultRegisterer)
}

var Module = fx.Options(
	fx.Provide(newDefaultBusiness),
)
