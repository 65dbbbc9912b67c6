package ai

import (
	"math"
	"testing"

	"vibecheck/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name                        string
		positive, neutral, negative float64
		expected                    models.Distribution
	}{
		{"Already 100", 60, 25, 15, models.Distribution{Positive: 60, Neutral: 25, Negative: 15}},
		{"Sum 110", 50, 30, 30, models.Distribution{Positive: 46, Neutral: 27, Negative: 27}},
		{"Sum 99", 33, 33, 33, models.Distribution{Positive: 34, Neutral: 33, Negative: 33}},
		{"Fractions", 33.3, 33.3, 33.4, models.Distribution{Positive: 33, Neutral: 33, Negative: 34}},
		{"Ratios", 1, 1, 2, models.Distribution{Positive: 25, Neutral: 25, Negative: 50}},
		{"Negative clamps", -5, 50, 50, models.Distribution{Positive: 0, Neutral: 50, Negative: 50}},
		{"Single category", 0, 0, 7, models.Distribution{Negative: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Normalize(tt.positive, tt.neutral, tt.negative)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
			assert.Equal(t, 100, d.Total())
		})
	}
}

func TestNormalizeRejectsEmpty(t *testing.T) {
	_, err := Normalize(0, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidDistribution)

	_, err = Normalize(math.NaN(), 10, 10)
	assert.ErrorIs(t, err, ErrInvalidDistribution)

	_, err = Normalize(-1, -1, 0)
	assert.ErrorIs(t, err, ErrInvalidDistribution)
}

func TestPercentagesAlwaysSumTo100(t *testing.T) {
	for p := 0; p <= 12; p++ {
		for n := 0; n <= 12; n++ {
			for neg := 0; neg <= 12; neg++ {
				d := Percentages(p, n, neg)
				assert.Equal(t, 100, d.Total(), "counts %d/%d/%d", p, n, neg)
			}
		}
	}
	assert.Equal(t, models.Distribution{Neutral: 100}, Percentages(0, 0, 0))
}
