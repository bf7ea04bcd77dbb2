package resources

import (
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
)

// Generates a vector with every dimension in [0, max].
func genResources(max float64) gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(0, max),
		gen.Float64Range(0, max),
		gen.Float64Range(0, max),
		gen.Float64Range(0, max),
		gen.Float64Range(0, max),
		gen.Float64Range(0, max),
	).Map(func(vals []interface{}) Resources {
		var v [6]float64
		for i := range v {
			v[i] = vals[i].(float64)
		}
		return fromValues(v)
	})
}
