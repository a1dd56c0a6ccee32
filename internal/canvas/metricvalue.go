package canvas

import (
	"strconv"
	"strings"
)

// MetricValue is a chart metric's value: an integer in [0,100] or the
// unset state. Unset serializes as the empty string, which the UI
// treats as "no value entered", distinct from an explicit 0.
type MetricValue struct {
	n   int
	set bool
}

// Metric returns a set value. The input is clamped to [0,100].
func Metric(n int) MetricValue {
	return MetricValue{n: clampMetric(n), set: true}
}

// UnsetMetric returns the unset value.
func UnsetMetric() MetricValue {
	return MetricValue{}
}

// IsSet reports whether the value holds a number.
func (v MetricValue) IsSet() bool { return v.set }

// Int returns the stored value, or 0 when unset.
func (v MetricValue) Int() int { return v.n }

// MarshalJSON renders a set value as a JSON number and an unset value
// as "".
func (v MetricValue) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte(`""`), nil
	}
	return []byte(strconv.Itoa(v.n)), nil
}

// UnmarshalJSON accepts a JSON number, a numeric string, or the empty
// string. Anything unparseable degrades to unset.
func (v *MetricValue) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*v = UnsetMetric()
		return nil
	}
	s = strings.Trim(s, `"`)
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		f, ferr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if ferr != nil {
			*v = UnsetMetric()
			return nil
		}
		n = int(f)
	}
	*v = Metric(n)
	return nil
}

func clampMetric(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
