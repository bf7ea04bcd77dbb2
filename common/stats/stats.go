// Package stats records the scheduler's counters, gauges and loop latency in a go-metrics
// registry and renders them as one flat JSON object for the status endpoint.
//
// Names are hierarchical with a '/' separator; a '/' inside a name element (hostnames,
// rejection reasons) is replaced by "_SLASH_". Latencies expand to avg/count/max/min/sum and
// p50/p90/p99 keys in the unit of the receiver's precision.
package stats

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
)

// StatsReceiver hands out named instruments below its scope.
//
//	stat.Scope("foo", "bar").Counter("baz")  // is equivalent to
//	stat.Counter("foo", "bar", "baz")
type StatsReceiver interface {
	Scope(scope ...string) StatsReceiver

	// Precision returns a receiver whose latencies render in units of p.
	Precision(p time.Duration) StatsReceiver

	Counter(name ...string) Counter
	Gauge(name ...string) Gauge
	GaugeFloat(name ...string) GaugeFloat
	Latency(name ...string) Latency

	// Render marshals every instrument of the underlying registry, whatever the scope.
	Render(pretty bool) []byte
}

type Counter interface {
	Inc(int64)
	Count() int64
}

type Gauge interface {
	Update(int64)
	Value() int64
}

type GaugeFloat interface {
	Update(float64)
	Value() float64
}

// Latency measures one duration: stat.Latency("x").Time() ... .Stop().
type Latency interface {
	Time() Latency
	Stop()
}

// registry pairs the go-metrics registry with the render precision of each latency.
type registry struct {
	metrics.Registry

	mu        sync.Mutex
	precision map[string]time.Duration
}

func DefaultStatsReceiver() StatsReceiver {
	return &receiver{
		reg:       &registry{Registry: metrics.NewRegistry(), precision: make(map[string]time.Duration)},
		precision: time.Nanosecond,
	}
}

type receiver struct {
	reg       *registry
	precision time.Duration
	scope     []string
}

func (s *receiver) Scope(scope ...string) StatsReceiver {
	return &receiver{s.reg, s.precision, s.scoped(scope...)}
}

func (s *receiver) Precision(p time.Duration) StatsReceiver {
	if p < 1 {
		p = 1
	}
	return &receiver{s.reg, p, s.scope}
}

func (s *receiver) Counter(name ...string) Counter {
	return metrics.GetOrRegisterCounter(s.scopedName(name...), s.reg)
}

func (s *receiver) Gauge(name ...string) Gauge {
	return metrics.GetOrRegisterGauge(s.scopedName(name...), s.reg)
}

func (s *receiver) GaugeFloat(name ...string) GaugeFloat {
	return metrics.GetOrRegisterGaugeFloat64(s.scopedName(name...), s.reg)
}

func (s *receiver) Latency(name ...string) Latency {
	full := s.scopedName(name...)
	s.reg.mu.Lock()
	s.reg.precision[full] = s.precision
	s.reg.mu.Unlock()
	return &latency{hist: metrics.GetOrRegisterHistogram(full, s.reg, metrics.NewUniformSample(sampleSize))}
}

func (s *receiver) Render(pretty bool) []byte {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(s.reg.values(), "", "  ")
	} else {
		b, err = json.Marshal(s.reg.values())
	}
	if err != nil {
		log.WithError(err).Error("Failed to render stats")
		return []byte("{}")
	}
	return b
}

func (s *receiver) scoped(scope ...string) []string {
	out := make([]string, 0, len(s.scope)+len(scope))
	out = append(out, s.scope...)
	for _, elem := range scope {
		out = append(out, strings.Replace(elem, "/", "_SLASH_", -1))
	}
	return out
}

func (s *receiver) scopedName(name ...string) string {
	return strings.Join(s.scoped(name...), "/")
}

// values flattens the registry into name -> number.
func (r *registry) values() map[string]interface{} {
	data := make(map[string]interface{})
	r.Each(func(name string, i interface{}) {
		switch m := i.(type) {
		case metrics.Counter:
			data[name] = m.Count()
		case metrics.Gauge:
			data[name] = m.Value()
		case metrics.GaugeFloat64:
			data[name] = m.Value()
		case metrics.Histogram:
			r.mu.Lock()
			p := r.precision[name]
			r.mu.Unlock()
			if p < 1 {
				p = 1
			}
			addLatency(data, name, m.Snapshot(), p)
		default:
			log.Infof("Unrecognized stat %s: %T", name, i)
		}
	})
	return data
}

const sampleSize = 1000

var percentiles = []float64{0.5, 0.9, 0.99}
var percentileLabels = []string{"p50", "p90", "p99"}

func addLatency(data map[string]interface{}, name string, t metrics.Histogram, precision time.Duration) {
	f64p, i64p := float64(precision), int64(precision)
	data[name+".avg"] = t.Mean() / f64p
	data[name+".count"] = t.Count()
	data[name+".max"] = t.Max() / i64p
	data[name+".min"] = t.Min() / i64p
	data[name+".sum"] = t.Sum() / i64p
	for i, v := range t.Percentiles(percentiles) {
		data[name+"."+percentileLabels[i]] = v / f64p
	}
}

// Latencies are histograms of nanoseconds; a go-metrics Timer would start a meter goroutine
// that never exits.
type latency struct {
	hist  metrics.Histogram
	start time.Time
}

func (l *latency) Time() Latency { l.start = time.Now(); return l }
func (l *latency) Stop()         { l.hist.Update(time.Since(l.start).Nanoseconds()) }

// NilStatsReceiver drops everything.
func NilStatsReceiver() StatsReceiver {
	return nilReceiver{}
}

type nilReceiver struct{}

func (s nilReceiver) Scope(...string) StatsReceiver         { return s }
func (s nilReceiver) Precision(time.Duration) StatsReceiver { return s }
func (nilReceiver) Counter(...string) Counter               { return metrics.NilCounter{} }
func (nilReceiver) Gauge(...string) Gauge                   { return metrics.NilGauge{} }
func (nilReceiver) GaugeFloat(...string) GaugeFloat         { return metrics.NilGaugeFloat64{} }
func (nilReceiver) Latency(...string) Latency               { return nilLatency{} }
func (nilReceiver) Render(bool) []byte                      { return []byte{} }

type nilLatency struct{}

func (l nilLatency) Time() Latency { return l }
func (nilLatency) Stop()           {}
