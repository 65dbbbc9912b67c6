package ai

import (
	"errors"
	"math"
	"sort"

	"vibecheck/internal/models"
)

var ErrInvalidDistribution = errors.New("invalid sentiment distribution")

// Normalize turns raw positive/neutral/negative values into whole
// percentages summing to exactly 100. Negative values count as zero. A
// distribution with nothing in it is rejected.
func Normalize(positive, neutral, negative float64) (models.Distribution, error) {
	values := []float64{positive, neutral, negative}
	var total float64
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return models.Distribution{}, ErrInvalidDistribution
		}
		if v < 0 {
			values[i] = 0
		}
		total += values[i]
	}
	if total <= 0 {
		return models.Distribution{}, ErrInvalidDistribution
	}

	shares := make([]float64, len(values))
	for i, v := range values {
		shares[i] = v * 100 / total
	}
	p := largestRemainder(shares, 100)
	return models.Distribution{Positive: p[0], Neutral: p[1], Negative: p[2]}, nil
}

// Percentages converts category counts into a distribution over their sum.
func Percentages(positive, neutral, negative int) models.Distribution {
	d, err := Normalize(float64(positive), float64(neutral), float64(negative))
	if err != nil {
		return models.Distribution{Neutral: 100}
	}
	return d
}

// largestRemainder floors every share and hands the leftover units to the
// shares with the biggest fractional parts, earlier index first on ties.
func largestRemainder(shares []float64, total int) []int {
	out := make([]int, len(shares))
	fracs := make([]float64, len(shares))
	assigned := 0
	for i, s := range shares {
		s = math.Round(s*1e9) / 1e9
		out[i] = int(math.Floor(s))
		fracs[i] = s - math.Floor(s)
		assigned += out[i]
	}

	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return fracs[order[a]] > fracs[order[b]]
	})

	for i := 0; assigned < total; i++ {
		out[order[i%len(order)]]++
		assigned++
	}
	return out
}
