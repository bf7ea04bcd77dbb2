package resources

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"
)

func Test_AddThenSubtractIsIdentity(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("a.Add(b).Subtract(b) == a", prop.ForAll(
		func(a, b Resources) bool {
			return a.Add(b).Subtract(b).Equal(a)
		},
		genResources(100000), genResources(100000),
	))
	properties.TestingRun(t)
}

func Test_SubtractNeverNegative(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("a.Subtract(b) has no negative dimension", prop.ForAll(
		func(a, b Resources) bool {
			ok := true
			a.Subtract(b).Each(func(_ string, v float64) {
				if v < 0 {
					ok = false
				}
			})
			return ok
		},
		genResources(1000), genResources(1000),
	))
	properties.TestingRun(t)
}

func Test_IncreaseUpToMeetsBoth(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("max(a, b) is sufficient to meet a and b", prop.ForAll(
		func(a, b Resources) bool {
			m := a.IncreaseUpTo(b)
			return m.IsSufficientToMeet(a) && m.IsSufficientToMeet(b)
		},
		genResources(1000), genResources(1000),
	))
	properties.TestingRun(t)
}

func Test_SumIsSufficientToMeetParts(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("a + b is sufficient to meet a", prop.ForAll(
		func(a, b Resources) bool {
			return a.Add(b).IsSufficientToMeet(a)
		},
		genResources(1000), genResources(1000),
	))
	properties.TestingRun(t)
}
