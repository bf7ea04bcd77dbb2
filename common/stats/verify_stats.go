package stats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
)

/*
Utilities for validating the stats registry contents
*/
type RuleChecker struct {
	name    string
	checker func(interface{}, interface{}) bool
}

func nilCheck(a, b interface{}) (nilFound, eqValues bool) {
	if b == nil && a == nil {
		return true, true
	} else if b == nil || a == nil {
		return true, false
	}
	return false, false
}

/*
errors if a is not float64, returns true if a == b
*/
func floatEqTest(a, b interface{}) bool {
	if nilFound, eqValue := nilCheck(a, b); nilFound {
		return eqValue
	}
	return a.(float64) == b.(float64)
}

var FloatEqTest = RuleChecker{name: "floatEqTest", checker: floatEqTest}

/*
errors if a is not int64, returns true if a == b
*/
func int64EqTest(a, b interface{}) bool {
	if nilFound, eqValue := nilCheck(a, b); nilFound {
		return eqValue
	}
	return a.(int64) == int64(b.(int))
}

var Int64EqTest = RuleChecker{name: "IntEqTest", checker: int64EqTest}

func doesNotExistTest(a, b interface{}) bool {
	return a == nil
}

var DoesNotExistTest = RuleChecker{name: "NotExistCheck", checker: doesNotExistTest}

/*
defines the condition checker to use to validate the measurement. Each Checker(a, b) implementation
will expect a to be the 'got' value and b to be the 'expected' value.
*/
type Rule struct {
	Checker RuleChecker
	Value   interface{}
}

/*
Verify that the receiver's registry contains values for the keys in the contains map parameter and that
each entry conforms to the rule associated with that key.
*/
func VerifyStats(tag string, stat StatsReceiver, t *testing.T, contains map[string]Rule) {
	recv, ok := stat.(*receiver)
	if !ok {
		t.Errorf("%s: stats receiver %T cannot be verified", tag, stat)
		return
	}

	asJson := recv.reg.values()
	failed := false
	var msg bytes.Buffer
	msg.WriteString(tag)
	msg.WriteString(":stats registry error:\n")
	for key, rule := range contains {
		gotValue := asJson[key]
		if rule.Checker.checker(gotValue, rule.Value) {
			continue
		}
		failed = true
		if rule.Checker.name == DoesNotExistTest.name {
			msg.WriteString(fmt.Sprintf("%s: found stat entry when there should not be one\n", key))
		} else {
			msg.WriteString(fmt.Sprintf("%s: got %v, expected to pass %s with %v\n", key, gotValue, rule.Checker.name, rule.Value))
		}
	}
	if failed {
		pretty, _ := json.MarshalIndent(asJson, "", "  ")
		t.Errorf("%s\n%s", msg.String(), pretty)
	}
}
