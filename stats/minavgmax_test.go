package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateMinAvgMaxEmpty(t *testing.T) {
	assert.Equal(t, Attrs{"min": 0.0, "avg": 0.0, "max": 0.0},
		CalculateMinAvgMax(nil))
	assert.Equal(t, Attrs{"min": 0.0, "avg": 0.0, "max": 0.0},
		CalculateMinAvgMax([]WeightedValue{}))
}

func TestCalculateMinAvgMaxWeighted(t *testing.T) {
	got := CalculateMinAvgMax([]WeightedValue{Weighted(2, 1), Weighted(4, 3)})
	assert.Equal(t, Attrs{"min": 2.0, "avg": 3.5, "max": 4.0}, got)
}

func TestCalculateMinAvgMaxPlain(t *testing.T) {
	got := CalculateMinAvgMax([]WeightedValue{Plain(1), Plain(2), Plain(6)})
	assert.Equal(t, Attrs{"min": 1.0, "avg": 3.0, "max": 6.0}, got)
}

func TestCalculateMinAvgMaxZeroWeight(t *testing.T) {
	// zero weight counts for min/max but not for the average
	got := CalculateMinAvgMax([]WeightedValue{Weighted(10, 0), Weighted(2, 1)})
	assert.Equal(t, Attrs{"min": 2.0, "avg": 2.0, "max": 10.0}, got)
}

func TestCalculateMinAvgMaxAllZeroWeights(t *testing.T) {
	got := CalculateMinAvgMax([]WeightedValue{Weighted(3, 0), Weighted(5, 0)})
	assert.Equal(t, Attrs{"min": 3.0, "avg": 0.0, "max": 5.0}, got)
}

func TestCalculateMinAvgMaxNegative(t *testing.T) {
	got := CalculateMinAvgMax([]WeightedValue{Plain(-2), Plain(2)})
	assert.Equal(t, Attrs{"min": -2.0, "avg": 0.0, "max": 2.0}, got)
}
