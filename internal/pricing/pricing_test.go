package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	// Predicted at or below base floors to base
	assert.Equal(t, int64(1000), Clamp(1000, 800))
	assert.Equal(t, int64(1000), Clamp(1000, 1000))
	assert.Equal(t, int64(1000), Clamp(1000, 0))

	// Inside the band the prediction passes through
	assert.Equal(t, int64(1200), Clamp(1000, 1200))
	assert.Equal(t, int64(1999), Clamp(1000, 1999))

	// Above twice base caps at twice base
	assert.Equal(t, int64(2000), Clamp(1000, 2500))
	assert.Equal(t, int64(2000), Clamp(1000, 2000))
}

func TestClampStaysInBand(t *testing.T) {
	bases := []int64{1, 50, 1000, 99999}
	predictions := []int64{0, 1, 499, 1000, 1500, 2000, 1 << 40}

	for _, base := range bases {
		for _, predicted := range predictions {
			got := Clamp(base, predicted)
			assert.GreaterOrEqual(t, got, base)
			assert.LessOrEqual(t, got, 2*base)
		}
	}
}
