package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes the full trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s", ev.Seq, ev.Type)
		if ev.Kind != "" {
			fmt.Fprintf(&buf, " %s", ev.Kind)
		}
		if ev.Code != "" {
			fmt.Fprintf(&buf, " %s", ev.Code)
		}
		if ev.Records != nil {
			fmt.Fprintf(&buf, " %v", *ev.Records)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

func assertFinalState(result *Result, a Assertion) error {
	if result.State.Equal(*a.Records) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: fmt.Sprintf("%v", *a.Records),
		Actual:   fmt.Sprintf("%v", result.State),
		Trace:    result.Trace,
	}
}

func assertTraceCount(result *Result, a Assertion) error {
	n := result.Count(a.Event)
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%d %s event(s)", a.Count, a.Event),
		Actual:   fmt.Sprintf("%d", n),
		Trace:    result.Trace,
	}
}

// assertTraceOrder checks that the listed event types occur in order,
// not necessarily adjacent.
func assertTraceOrder(result *Result, a Assertion) error {
	next := 0
	for _, ev := range result.Trace {
		if next < len(a.Events) && ev.Type == a.Events[next] {
			next++
		}
	}
	if next == len(a.Events) {
		return nil
	}

	actual := make([]string, len(result.Trace))
	for i, ev := range result.Trace {
		actual[i] = ev.Type
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: strings.Join(a.Events, " -> "),
		Actual:   strings.Join(actual, " -> "),
		Trace:    result.Trace,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertFinalState:
			if a.Records == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires records", i)
			} else {
				err = assertFinalState(result, a)
			}
		case AssertTraceCount:
			err = assertTraceCount(result, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
