package policy

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBounds() Bounds {
	var b Bounds
	b.Lo = Score{-150, 0, 0, 0, -30, -60, 0, -3300, 0}
	b.Hi = Score{150, 0, 0, 0, 0, 0, 150, 0, 290}
	return b
}

func TestComputeWeights_Gap(t *testing.T) {
	b := sampleBounds()
	w, err := ComputeWeights(b)
	require.NoError(t, err)

	assert.Equal(t, int64(1), w[TierRhythm])
	for k := 0; k < NumTiers; k++ {
		var below int64
		for j := k + 1; j < NumTiers; j++ {
			below += w[j] * b.Swing(Tier(j))
		}
		assert.Greater(t, w[k], below, "层 %s 的权重必须大于所有低层变化之和", Tier(k))
	}
}

func TestComputeWeights_ScalarMatchesLexicographic(t *testing.T) {
	b := sampleBounds()
	w, err := ComputeWeights(b)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	random := func() Score {
		var s Score
		for i := range s {
			if sw := b.Swing(Tier(i)); sw > 0 {
				s[i] = b.Lo[i] + rng.Int63n(sw+1)
			}
		}
		return s
	}

	scalar := Comparator{Mode: Scalarized, Weights: w}
	lex := Comparator{Mode: Lexicographic}
	for i := 0; i < 2000; i++ {
		a, c := random(), random()
		if i%3 == 0 {
			c = a
			c[TierRhythm] = b.Hi[TierRhythm] - c[TierRhythm]
		}
		assert.Equal(t, lex.Compare(a, c), scalar.Compare(a, c), "a=%v c=%v", a, c)
	}
}

func TestComputeWeights_Overflow(t *testing.T) {
	var b Bounds
	for i := range b.Hi {
		b.Hi[i] = math.MaxInt32
	}
	_, err := ComputeWeights(b)
	assert.ErrorIs(t, err, ErrWeightOverflow)
}

func TestScore_CompareAndDiff(t *testing.T) {
	a := Score{1, 0, 0, 0, 0, 0, 0, 0, -100}
	c := Score{0, 0, 0, 0, 0, 0, 0, 0, 100}

	assert.Equal(t, 1, a.Compare(c))
	assert.Equal(t, -1, c.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, int(TierCoverage), a.FirstDiff(c))
	assert.Equal(t, -1, a.FirstDiff(a))

	sum := a
	sum.Add(c)
	sum.Sub(c)
	assert.Equal(t, a, sum)
	assert.Equal(t, int64(-100), a.Map()["rhythm"])
}

func TestPolicy_HolidayBand(t *testing.T) {
	tests := []struct {
		name   string
		mode   HolidayMode
		target int
		lo, hi int
	}{
		{"精确", HolidayExact, 9, 9, 9},
		{"容差", HolidayTolerance, 9, 8, 10},
		{"容差下限截断", HolidayTolerance, 0, 0, 1},
		{"软约束", HolidaySoft, 9, 0, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			p.Holiday = tt.mode
			lo, hi := p.HolidayBand(tt.target, 30)
			assert.Equal(t, tt.lo, lo)
			assert.Equal(t, tt.hi, hi)
		})
	}
}

func TestParse(t *testing.T) {
	s, err := ParseStrictness("Strict")
	require.NoError(t, err)
	assert.Equal(t, Hard, s)

	_, err = ParseStrictness("maybe")
	assert.Error(t, err)

	m, err := ParseHolidayMode("tolerance")
	require.NoError(t, err)
	assert.Equal(t, HolidayTolerance, m)

	w, err := ParseWeighting("lex")
	require.NoError(t, err)
	assert.Equal(t, Lexicographic, w)

	assert.Error(t, Policy{MaxConsecutive: 0}.Validate())
	assert.NoError(t, Default().Validate())
}
