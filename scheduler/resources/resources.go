// Package resources holds the scalar resource arithmetic used by the scheduler and the
// per-agent accounting of offers, task usage and watermarks.
package resources

import (
	"fmt"
	"math"
)

// Amounts closer than this are considered equal when comparing resources.
const epsilon = 0.0001

// Resource names, used for stats and status output.
const (
	Cpus      = "cpus"
	Mem       = "mem"
	DiskIn    = "disk_in"
	DiskOut   = "disk_out"
	DiskTotal = "disk_total"
	SharedMem = "shared_mem"
)

// Names lists every resource dimension in a fixed order.
var Names = []string{Cpus, Mem, DiskIn, DiskOut, DiskTotal, SharedMem}

// Resources is a vector of named scalar quantities. All six dimensions are always present.
// Memory and disk are in MiB.
type Resources struct {
	Cpus      float64 `json:"cpus"`
	Mem       float64 `json:"mem"`
	DiskIn    float64 `json:"disk_in"`
	DiskOut   float64 `json:"disk_out"`
	DiskTotal float64 `json:"disk_total"`
	SharedMem float64 `json:"shared_mem"`
}

func (r Resources) values() [6]float64 {
	return [6]float64{r.Cpus, r.Mem, r.DiskIn, r.DiskOut, r.DiskTotal, r.SharedMem}
}

func fromValues(v [6]float64) Resources {
	return Resources{Cpus: v[0], Mem: v[1], DiskIn: v[2], DiskOut: v[3], DiskTotal: v[4], SharedMem: v[5]}
}

func combine(a, b Resources, fn func(x, y float64) float64) Resources {
	av, bv := a.values(), b.values()
	var out [6]float64
	for i := range av {
		out[i] = fn(av[i], bv[i])
	}
	return fromValues(out)
}

// Add returns r + o.
func (r Resources) Add(o Resources) Resources {
	return combine(r, o, func(x, y float64) float64 { return x + y })
}

// Subtract returns r - o, with any dimension that would go negative clamped to zero.
func (r Resources) Subtract(o Resources) Resources {
	return combine(r, o, func(x, y float64) float64 { return math.Max(0, x-y) })
}

// IncreaseUpTo returns the component-wise max of r and o.
func (r Resources) IncreaseUpTo(o Resources) Resources {
	return combine(r, o, math.Max)
}

// IsSufficientToMeet reports whether every dimension of r is at least the matching dimension of o.
func (r Resources) IsSufficientToMeet(o Resources) bool {
	return len(r.Shortfall(o)) == 0
}

// Shortfall returns the names of the dimensions where r falls short of o, in Names order.
func (r Resources) Shortfall(o Resources) []string {
	var short []string
	rv, ov := r.values(), o.values()
	for i := range rv {
		if rv[i]+epsilon < ov[i] {
			short = append(short, Names[i])
		}
	}
	return short
}

// Equal compares two vectors within floating tolerance.
func (r Resources) Equal(o Resources) bool {
	rv, ov := r.values(), o.values()
	for i := range rv {
		if math.Abs(rv[i]-ov[i]) > epsilon {
			return false
		}
	}
	return true
}

// IsZero reports whether every dimension is (approximately) zero.
func (r Resources) IsZero() bool {
	return r.Equal(Resources{})
}

// Each calls fn for every dimension in Names order.
func (r Resources) Each(fn func(name string, value float64)) {
	for i, v := range r.values() {
		fn(Names[i], v)
	}
}

func (r Resources) String() string {
	return fmt.Sprintf("{cpus:%.2f, mem:%.2f, disk_in:%.2f, disk_out:%.2f, disk_total:%.2f, shared_mem:%.2f}",
		r.Cpus, r.Mem, r.DiskIn, r.DiskOut, r.DiskTotal, r.SharedMem)
}

// Sum adds up a list of vectors.
func Sum(rs ...Resources) Resources {
	total := Resources{}
	for _, r := range rs {
		total = total.Add(r)
	}
	return total
}
