package stats

type (
	// WeightedValue is a measured value with a relative importance
	// weight for average calculation.
	WeightedValue struct {
		Value  float64
		Weight float64
	}

	// Collector is a contract for specializations gathering the values
	// a min/avg/max parameter aggregates.
	Collector interface {
		Collect() ([]WeightedValue, error)
	}

	// MinAvgMax computes weighted minimum, average and maximum over a
	// collected value set.
	MinAvgMax struct {
		collector Collector
	}
)

// Weighted returns a value with an explicit weight.
func Weighted(value, weight float64) WeightedValue {
	return WeightedValue{Value: value, Weight: weight}
}

// Plain returns a value with the default weight 1.
func Plain(value float64) WeightedValue {
	return WeightedValue{Value: value, Weight: 1}
}

// NewMinAvgMax creates a min/avg/max aggregator over the collector.
func NewMinAvgMax(c Collector) *MinAvgMax {
	return &MinAvgMax{collector: c}
}

// GenerateEntries collects the values and aggregates them.
func (m *MinAvgMax) GenerateEntries() (Attrs, error) {
	values, err := m.collector.Collect()
	if err != nil {
		return nil, err
	}
	return CalculateMinAvgMax(values), nil
}

// CalculateMinAvgMax returns the minimum, weighted average and maximum
// of the given values. Min and max are taken over the unweighted
// values; a zero-weight entry still counts for them. An empty input
// yields all zeros.
func CalculateMinAvgMax(values []WeightedValue) Attrs {
	if len(values) == 0 {
		return Attrs{"min": 0.0, "avg": 0.0, "max": 0.0}
	}

	min, max := values[0].Value, values[0].Value
	var weightedSum, weightsSum float64
	for _, v := range values {
		if v.Value < min {
			min = v.Value
		}
		if v.Value > max {
			max = v.Value
		}
		weightedSum += v.Value * v.Weight
		weightsSum += v.Weight
	}

	avg := 0.0
	if weightsSum != 0 {
		avg = weightedSum / weightsSum
	}

	return Attrs{"min": min, "avg": avg, "max": max}
}
