package stats

import (
	"strings"
	"testing"
	"time"
)

func TestPrecisionChange(t *testing.T) {
	stat := DefaultStatsReceiver().(*receiver)
	if stat.precision != time.Nanosecond {
		t.Fatal("Default precision should be nanos.")
	}

	statp := stat.Precision(time.Millisecond).(*receiver)
	if stat.precision != time.Nanosecond {
		t.Fatal("Default precision should still nanos.")
	}
	if statp.precision != time.Millisecond {
		t.Fatal("New stat precision should be millis.")
	}
}

func TestScopeChange(t *testing.T) {
	stat := DefaultStatsReceiver().(*receiver)
	if len(stat.scope) != 0 {
		t.Fatal("Default scope should be empty.")
	}

	statp := stat.Scope("a/b", "c").(*receiver)
	if len(stat.scope) != 0 {
		t.Fatal("Default scope should still empty.")
	}
	if len(statp.scope) != 2 || statp.scope[0] != "a_SLASH_b" || statp.scope[1] != "c" {
		t.Fatal("Invalid scope value: ", statp.scope)
	}
	if statp.scopedName("d") != "a_SLASH_b/c/d" {
		t.Fatal("Invalid scope name: " + statp.scopedName("d"))
	}
}

func TestScopeDoesNotAliasParent(t *testing.T) {
	stat := DefaultStatsReceiver().Scope("root").(*receiver)
	a := stat.Scope("a").(*receiver)
	b := stat.Scope("b").(*receiver)
	if a.scopedName("x") != "root/a/x" || b.scopedName("x") != "root/b/x" {
		t.Fatalf("Sibling scopes interfere: %s, %s", a.scopedName("x"), b.scopedName("x"))
	}
}

func TestInstrumentsAreShared(t *testing.T) {
	stat := DefaultStatsReceiver()
	stat.Counter("a", "counter").Inc(1)
	stat.Scope("a").Counter("counter").Inc(2)
	if got := stat.Counter("a/counter").Count(); got != 0 {
		t.Fatalf("Escaped name should be a separate counter, got %d", got)
	}
	if got := stat.Scope("a").Counter("counter").Count(); got != 3 {
		t.Fatalf("Expected shared counter at 3, got %d", got)
	}
}

func TestRenderPretty(t *testing.T) {
	stat := DefaultStatsReceiver()
	stat.Counter("counter").Inc(1)
	stat.Gauge("gauge").Update(2)
	stat.GaugeFloat("gaugeFloat").Update(2.5)

	expected :=
		`{
  "counter": 1,
  "gauge": 2,
  "gaugeFloat": 2.5
}`
	if got := string(stat.Render(true)); got != expected {
		t.Fatal("Wrong json render output: ", got)
	}
}

func TestRenderLatency(t *testing.T) {
	stat := DefaultStatsReceiver().Precision(time.Millisecond)
	stat.Latency("loop_ms").Time().Stop()

	rendered := string(stat.Render(false))
	for _, key := range []string{`"loop_ms.count":1`, `"loop_ms.p99"`, `"loop_ms.avg"`} {
		if !strings.Contains(rendered, key) {
			t.Errorf("Expected %s in %s", key, rendered)
		}
	}
}

func TestVerifyStats(t *testing.T) {
	stat := DefaultStatsReceiver()
	stat.Counter("launched").Inc(3)
	stat.Scope("cluster").GaugeFloat("cpus").Update(4)

	VerifyStats("verify", stat, t, map[string]Rule{
		"launched":     {Checker: Int64EqTest, Value: 3},
		"cluster/cpus": {Checker: FloatEqTest, Value: 4.0},
		"missing":      {Checker: DoesNotExistTest},
	})
}

func TestNilReceiver(t *testing.T) {
	stat := NilStatsReceiver()
	stat.Scope("a").Counter("b").Inc(1)
	stat.Gauge("c").Update(1)
	stat.Latency("d").Time().Stop()
	if len(stat.Render(true)) != 0 {
		t.Fatal("Nil receiver should render nothing")
	}
}
