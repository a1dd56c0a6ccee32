package canvas

import "fmt"

// Chart metric mutators operate on ChartData.Field1. Metrics are
// addressed positionally; out-of-range indices are a no-op. Values are
// clamped to [0,100] rather than rejected.

// AddChartMetric appends a metric and returns the new payload with the
// created metric id ("" when the payload is not a chart).
func AddChartMetric(data ItemData, label string, value MetricValue) (ItemData, string) {
	d, ok := data.(ChartData)
	if !ok {
		return data, ""
	}
	d = d.Clone().(ChartData)
	d.Field1ID++
	id := fmt.Sprintf("%03d", d.Field1ID)
	d.Field1 = append(d.Field1, ChartMetric{ID: id, Label: label, Value: value})
	return d, id
}

// SetChartMetricLabel replaces the label of the metric at index.
func SetChartMetricLabel(data ItemData, index int, label string) ItemData {
	d, ok := data.(ChartData)
	if !ok || index < 0 || index >= len(d.Field1) {
		return data
	}
	d = d.Clone().(ChartData)
	d.Field1[index].Label = label
	return d
}

// SetChartMetricValue replaces the value of the metric at index. The
// value carries its own clamping; unset is a valid state.
func SetChartMetricValue(data ItemData, index int, value MetricValue) ItemData {
	d, ok := data.(ChartData)
	if !ok || index < 0 || index >= len(d.Field1) {
		return data
	}
	d = d.Clone().(ChartData)
	d.Field1[index].Value = value
	return d
}

// RemoveChartMetric deletes the metric at index.
func RemoveChartMetric(data ItemData, index int) ItemData {
	d, ok := data.(ChartData)
	if !ok || index < 0 || index >= len(d.Field1) {
		return data
	}
	d = d.Clone().(ChartData)
	d.Field1 = append(d.Field1[:index], d.Field1[index+1:]...)
	return d
}
