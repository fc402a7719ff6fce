package harness

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
	"github.com/roach88/typefn/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s", event.Seq, event.Function)
			if event.Variant != "" {
				fmt.Fprintf(&buf, "/%s", event.Variant)
			}
			fmt.Fprintf(&buf, " %s", event.Outcome)
			if event.ErrorKind != "" {
				fmt.Fprintf(&buf, " %s", event.ErrorKind)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// assertTraceContains checks that some call of the function matches the
// assertion's variant, outcome and error kind (each only if set).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Function != assertion.Function {
			continue
		}
		if assertion.Variant != "" && event.Variant != assertion.Variant {
			continue
		}
		if assertion.Outcome != "" && event.Outcome != assertion.Outcome {
			continue
		}
		if assertion.ErrorKind != "" && event.ErrorKind != assertion.ErrorKind {
			continue
		}
		return nil
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describeCall(assertion),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

func describeCall(a Assertion) string {
	parts := []string{"call to " + a.Function}
	if a.Variant != "" {
		parts = append(parts, "variant "+a.Variant)
	}
	if a.Outcome != "" {
		parts = append(parts, "outcome "+a.Outcome)
	}
	if a.ErrorKind != "" {
		parts = append(parts, "error kind "+a.ErrorKind)
	}
	return strings.Join(parts, ", ")
}

// assertTraceOrder checks if functions appear in the specified order.
// Calls don't need to be consecutive (intervening calls are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// First position of each expected function, 1-indexed.
	positions := make(map[string]int)
	for i, event := range trace {
		for _, fn := range assertion.Functions {
			if event.Function == fn && positions[fn] == 0 {
				positions[fn] = i + 1
			}
		}
	}

	for _, fn := range assertion.Functions {
		if positions[fn] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all functions present: %v", assertion.Functions),
				Actual:   fmt.Sprintf("missing function: %s", fn),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Functions); i++ {
		prev := assertion.Functions[i-1]
		curr := assertion.Functions[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("functions in order: %v", assertion.Functions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if the function was called exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Function == assertion.Function {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d calls to %s", assertion.Count, assertion.Function),
			Actual:   fmt.Sprintf("%d calls", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertRecordCounts checks the per-outcome counts persisted in the call log.
// Outcomes missing from Expect must have no records; a zero count in Expect
// is the same as leaving the outcome out.
func assertRecordCounts(ctx context.Context, st *store.Store, assertion Assertion) error {
	counts, err := st.Counts(ctx, assertion.Function)
	if err != nil {
		return &AssertionError{
			Type:     AssertRecordCounts,
			Expected: "readable call log",
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	want := maps.Clone(assertion.Expect)
	maps.DeleteFunc(want, func(_ string, n int) bool { return n == 0 })
	if !maps.Equal(counts, want) {
		scope := assertion.Function
		if scope == "" {
			scope = "all functions"
		}
		return &AssertionError{
			Type:     AssertRecordCounts,
			Expected: fmt.Sprintf("%s for %s", formatCounts(assertion.Expect), scope),
			Actual:   formatCounts(counts),
		}
	}
	return nil
}

func formatCounts(counts map[string]int) string {
	keys := slices.Sorted(maps.Keys(counts))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	if len(parts) == 0 {
		return "(no records)"
	}
	return strings.Join(parts, " ")
}

// matchValue reports whether actual matches expected. Objects match as
// subsets (extra keys in actual are ignored); an expected int matches an
// equal float; everything else must be equal.
func matchValue(expected, actual ir.IRValue) bool {
	switch exp := expected.(type) {
	case ir.IRObject:
		act, ok := actual.(ir.IRObject)
		if !ok {
			return false
		}
		for key, expVal := range exp {
			actVal, exists := act[key]
			if !exists {
				return false
			}
			if !matchValue(expVal, actVal) {
				return false
			}
		}
		return true
	case ir.IRArray:
		act, ok := actual.(ir.IRArray)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !matchValue(exp[i], act[i]) {
				return false
			}
		}
		return true
	case ir.IRInt:
		if f, ok := actual.(ir.IRFloat); ok {
			return float64(exp) == float64(f)
		}
		return actual == expected
	case ir.IRNull:
		return actual == nil || actual == ir.IRNull{}
	default:
		return actual == expected
	}
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for record_counts assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertRecordCounts:
			if actx == nil || actx.Store == nil {
				err = errors.Newf("assertion[%d]: record_counts requires database context", i)
			} else {
				err = assertRecordCounts(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = errors.Newf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
