package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	values := []float64{5, 1, 3, 2, 4}

	assert.Equal(t, 1.0, Percentile(values, 0))
	assert.Equal(t, 3.0, Percentile(values, 50))
	assert.Equal(t, 5.0, Percentile(values, 100))
	assert.Equal(t, 2.0, Percentile(values, 25))
	assert.InDelta(t, 4.8, Percentile(values, 95), 1e-9)
}

func TestPercentileEdgeCases(t *testing.T) {
	assert.Equal(t, 0.0, Percentile(nil, 50))
	assert.Equal(t, 7.0, Percentile([]float64{7}, 50))
	assert.Equal(t, 1.0, Percentile([]float64{1, 2}, -10))
	assert.Equal(t, 2.0, Percentile([]float64{1, 2}, 150))
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 2.5, Mean([]float64{1, 2, 3, 4}))
}
