package forecast

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstrainStationaryAR1(t *testing.T) {
	for _, x := range []float64{-50, -1, 0, 0.3, 2, 1e6} {
		got := constrainStationary([]float64{x})
		require.Len(t, got, 1)
		assert.InDelta(t, -x/math.Sqrt(1+x*x), got[0], 1e-12)
		assert.Less(t, math.Abs(got[0]), 1.0)
	}
	assert.Nil(t, constrainStationary(nil))
}

func TestConstrainStationaryAR2IsStationary(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		x := []float64{rng.NormFloat64() * 5, rng.NormFloat64() * 5}
		phi := constrainStationary(x)
		// Stationarity triangle for 1 - φ1 B - φ2 B².
		assert.Less(t, phi[0]+phi[1], 1.0)
		assert.Less(t, phi[1]-phi[0], 1.0)
		assert.Less(t, math.Abs(phi[1]), 1.0)
	}
}

func TestPolyMul(t *testing.T) {
	// (1 - 0.5B)(1 - 0.8B^3) = 1 - 0.5B - 0.8B^3 + 0.4B^4
	got := polyMul(lagPoly([]float64{0.5}, 1, -1), lagPoly([]float64{0.8}, 3, -1))
	assert.InDeltaSlice(t, []float64{1, -0.5, 0, -0.8, 0.4}, got, 1e-12)
	assert.Equal(t, []float64{1}, lagPoly(nil, 12, 1))
}

func TestOrderValidate(t *testing.T) {
	require.NoError(t, DefaultOrder().Validate())
	assert.Equal(t, "SARIMA(1,0,1)(1,0,1)[12]", DefaultOrder().String())
	assert.True(t, errors.Is(Order{P: -1}.Validate(), ErrInvalidOrder))
	assert.True(t, errors.Is(Order{SP: 1, S: 1}.Validate(), ErrInvalidOrder))
	require.NoError(t, Order{P: 2, Q: 1}.Validate(), "non-seasonal order needs no period")
}

func ar1(n int, phi, mean float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	prev := 0.0
	for i := range out {
		prev = phi*prev + rng.NormFloat64()
		out[i] = prev + mean
	}
	return out
}

func TestFitRecoversAR1(t *testing.T) {
	m, err := Fit(ar1(600, 0.6, 50, 1), Order{P: 1})
	require.NoError(t, err)
	require.Len(t, m.AR, 1)
	assert.InDelta(t, 0.6, m.AR[0], 0.1)
	assert.InDelta(t, 1.0, m.Sigma2, 0.2)
	assert.InDelta(t, 50, m.Mean, 1)
	assert.Len(t, m.Residuals(), 600)
}

func TestFitIsDeterministic(t *testing.T) {
	values := seasonal(48, 3)
	a, err := Fit(values, DefaultOrder())
	require.NoError(t, err)
	b, err := Fit(values, DefaultOrder())
	require.NoError(t, err)
	assert.Equal(t, a.AR, b.AR)
	assert.Equal(t, a.SMA, b.SMA)
	assert.Equal(t, a.Sigma2, b.Sigma2)

	pa, err := a.Forecast(6, 0.95)
	require.NoError(t, err)
	pb, err := b.Forecast(6, 0.95)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
}

func TestFitConstantSeries(t *testing.T) {
	m, err := Fit([]float64{42, 42, 42, 42, 42}, DefaultOrder())
	require.NoError(t, err)
	p, err := m.Forecast(4, 0.95)
	require.NoError(t, err)
	for h := range p.Mean {
		assert.Equal(t, 42.0, p.Mean[h])
		assert.Equal(t, 42.0, p.Lower[h])
		assert.Equal(t, 42.0, p.Upper[h])
	}
}

func TestFitRejectsBadInput(t *testing.T) {
	_, err := Fit([]float64{1}, DefaultOrder())
	assert.True(t, errors.Is(err, ErrTooShort))

	_, err = Fit([]float64{1, math.NaN(), 3}, DefaultOrder())
	assert.True(t, errors.Is(err, ErrFit))

	_, err = Fit([]float64{1, 2, 3}, Order{Q: -2})
	assert.True(t, errors.Is(err, ErrInvalidOrder))
}

// seasonal builds n months of a yearly pattern peaking in July, plus noise.
func seasonal(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		month := i % 12
		out[i] = 1000 + 400*math.Sin(2*math.Pi*float64(month-3)/12) + rng.NormFloat64()*20
	}
	return out
}

func TestForecastKeepsSeasonalShape(t *testing.T) {
	values := seasonal(60, 11) // ends in December
	m, err := Fit(values, DefaultOrder())
	require.NoError(t, err)

	p, err := m.Forecast(12, 0.95)
	require.NoError(t, err)
	july, january := p.Mean[6], p.Mean[0]
	assert.Greater(t, july, january)
}

func TestForecastIntervalWidens(t *testing.T) {
	m, err := Fit(ar1(200, 0.7, 500, 5), Order{P: 1, Q: 1})
	require.NoError(t, err)
	p, err := m.Forecast(24, 0.9)
	require.NoError(t, err)

	for h := range p.Mean {
		assert.LessOrEqual(t, p.Lower[h], p.Mean[h])
		assert.GreaterOrEqual(t, p.Upper[h], p.Mean[h])
		if h > 0 {
			assert.GreaterOrEqual(t, p.Upper[h]-p.Lower[h], p.Upper[h-1]-p.Lower[h-1]-1e-9)
		}
	}
	// A stationary model reverts to its mean.
	assert.InDelta(t, m.Mean, p.Mean[23], 1.5)
}

func TestForecastArguments(t *testing.T) {
	m, err := Fit(ar1(50, 0.3, 10, 2), Order{P: 1})
	require.NoError(t, err)
	_, err = m.Forecast(0, 0.95)
	assert.Error(t, err)
	_, err = m.Forecast(3, 1.5)
	assert.Error(t, err)
}

func TestPsiWeightsAR1(t *testing.T) {
	m := &Model{Order: Order{P: 1}}
	m.AR = []float64{0.5}
	m.arLags = []float64{0, 0.5}
	m.maLags = []float64{0}
	assert.InDeltaSlice(t, []float64{1, 0.5, 0.25, 0.125}, m.psiWeights(4), 1e-12)
}
