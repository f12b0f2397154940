// Package forecast fits seasonal ARMA models to monthly count series and
// projects them forward.
package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Model errors.
var (
	ErrTooShort     = errors.New("series too short to fit")
	ErrFit          = errors.New("model fit failed")
	ErrInvalidOrder = errors.New("invalid model order")
)

// Order is a SARIMA(p,0,q)(P,0,Q)[s] specification. Differencing is not
// supported; counts are modelled around their mean.
type Order struct {
	P, Q   int // non-seasonal AR and MA orders
	SP, SQ int // seasonal AR and MA orders
	S      int // seasonal period in months
}

// DefaultOrder is SARIMA(1,0,1)(1,0,1)[12].
func DefaultOrder() Order {
	return Order{P: 1, Q: 1, SP: 1, SQ: 1, S: 12}
}

func (o Order) String() string {
	return fmt.Sprintf("SARIMA(%d,0,%d)(%d,0,%d)[%d]", o.P, o.Q, o.SP, o.SQ, o.S)
}

// Validate checks that every order is non-negative and the period usable.
func (o Order) Validate() error {
	if o.P < 0 || o.Q < 0 || o.SP < 0 || o.SQ < 0 {
		return fmt.Errorf("%w: negative order in %s", ErrInvalidOrder, o)
	}
	if (o.SP > 0 || o.SQ > 0) && o.S < 2 {
		return fmt.Errorf("%w: seasonal period %d", ErrInvalidOrder, o.S)
	}
	return nil
}

func (o Order) numParams() int { return o.P + o.Q + o.SP + o.SQ }

// Model is a fitted SARIMA model.
type Model struct {
	Order  Order
	Mean   float64
	AR     []float64 // φ
	MA     []float64 // θ
	SAR    []float64 // Φ
	SMA    []float64 // Θ
	Sigma2 float64   // innovation variance

	arLags []float64 // a_k, y_t = Σ a_k y_{t-k} + e_t + Σ m_k e_{t-k}
	maLags []float64 // m_k
	y      []float64 // demeaned observations
	resid  []float64
}

// Fit estimates a model by conditional sum of squares on the demeaned series,
// with the innovation variance concentrated out. Pre-sample values are taken
// at the mean. Results are deterministic for identical input.
func Fit(values []float64, order Order) (*Model, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("%w: %d observations", ErrTooShort, len(values))
	}
	if floats.HasNaN(values) {
		return nil, fmt.Errorf("%w: series contains NaN", ErrFit)
	}

	m := &Model{Order: order, Mean: stat.Mean(values, nil)}
	m.y = make([]float64, len(values))
	copy(m.y, values)
	floats.AddConst(-m.Mean, m.y)

	// A flat series has nothing to explain; it forecasts its level exactly.
	if stat.Variance(values, nil) == 0 {
		m.setParams(make([]float64, order.numParams()))
		m.resid = make([]float64, len(values))
		return m, nil
	}

	k := order.numParams()
	if k == 0 {
		m.setParams(nil)
		m.Sigma2 = m.css() / float64(len(m.y))
		return m, nil
	}

	n := float64(len(m.y))
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			m.setParams(x)
			obj := 0.5 * n * math.Log(math.Max(m.css()/n, 1e-300))
			if math.IsNaN(obj) || math.IsInf(obj, 0) {
				return math.MaxFloat64
			}
			return obj
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: 2000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 100,
		},
	}

	res, err := optimize.Minimize(problem, make([]float64, k), settings, &optimize.NelderMead{SimplexSize: 0.5})
	if res == nil {
		return nil, fmt.Errorf("%w: %v", ErrFit, err)
	}
	if math.IsNaN(res.F) || res.F == math.MaxFloat64 {
		return nil, fmt.Errorf("%w: no finite likelihood", ErrFit)
	}

	m.setParams(res.X)
	m.Sigma2 = m.css() / n
	return m, nil
}

// setParams installs constrained coefficients from the unconstrained vector
// and rebuilds the expanded lag polynomials.
func (m *Model) setParams(x []float64) {
	o := m.Order
	take := func(n int) []float64 {
		v := x[:n]
		x = x[n:]
		return v
	}
	m.AR = constrainStationary(take(o.P))
	m.MA = negate(constrainStationary(take(o.Q)))
	m.SAR = constrainStationary(take(o.SP))
	m.SMA = negate(constrainStationary(take(o.SQ)))

	ar := polyMul(lagPoly(m.AR, 1, -1), lagPoly(m.SAR, o.S, -1))
	ma := polyMul(lagPoly(m.MA, 1, 1), lagPoly(m.SMA, o.S, 1))

	m.arLags = make([]float64, len(ar))
	for i := 1; i < len(ar); i++ {
		m.arLags[i] = -ar[i]
	}
	m.maLags = ma
	m.maLags[0] = 0
}

// css runs the residual recursion and returns the sum of squared residuals.
func (m *Model) css() float64 {
	if len(m.resid) != len(m.y) {
		m.resid = make([]float64, len(m.y))
	}
	var sum float64
	for t := range m.y {
		pred := 0.0
		for k := 1; k < len(m.arLags) && k <= t; k++ {
			pred += m.arLags[k] * m.y[t-k]
		}
		for k := 1; k < len(m.maLags) && k <= t; k++ {
			pred += m.maLags[k] * m.resid[t-k]
		}
		e := m.y[t] - pred
		m.resid[t] = e
		sum += e * e
	}
	return sum
}

// Projection is an h-step forecast path with its interval bounds.
type Projection struct {
	Mean  []float64
	Lower []float64
	Upper []float64
}

// Forecast projects steps months past the last observation. confidence is the
// interval coverage in (0, 1). Bounds come from the MA(∞) ψ-weights under
// Gaussian innovations.
func (m *Model) Forecast(steps int, confidence float64) (Projection, error) {
	if steps < 1 {
		return Projection{}, fmt.Errorf("forecast steps must be positive, got %d", steps)
	}
	if confidence <= 0 || confidence >= 1 {
		return Projection{}, fmt.Errorf("confidence must be in (0, 1), got %v", confidence)
	}

	n := len(m.y)
	y := make([]float64, n+steps)
	copy(y, m.y)
	e := make([]float64, n+steps)
	copy(e, m.resid)

	for t := n; t < n+steps; t++ {
		pred := 0.0
		for k := 1; k < len(m.arLags) && k <= t; k++ {
			pred += m.arLags[k] * y[t-k]
		}
		for k := 1; k < len(m.maLags) && k <= t; k++ {
			pred += m.maLags[k] * e[t-k]
		}
		y[t] = pred
	}

	psi := m.psiWeights(steps)
	z := distuv.UnitNormal.Quantile(0.5 + confidence/2)

	p := Projection{
		Mean:  make([]float64, steps),
		Lower: make([]float64, steps),
		Upper: make([]float64, steps),
	}
	var acc float64
	for h := 0; h < steps; h++ {
		acc += psi[h] * psi[h]
		half := z * math.Sqrt(m.Sigma2*acc)
		mean := y[n+h] + m.Mean
		p.Mean[h] = mean
		p.Lower[h] = mean - half
		p.Upper[h] = mean + half
	}
	if floats.HasNaN(p.Mean) || floats.HasNaN(p.Lower) || floats.HasNaN(p.Upper) {
		return Projection{}, fmt.Errorf("%w: projection is not finite", ErrFit)
	}
	return p, nil
}

// psiWeights returns the first count MA(∞) weights, ψ_0 = 1.
func (m *Model) psiWeights(count int) []float64 {
	psi := make([]float64, count)
	psi[0] = 1
	for j := 1; j < count; j++ {
		v := 0.0
		if j < len(m.maLags) {
			v = m.maLags[j]
		}
		for k := 1; k < len(m.arLags) && k <= j; k++ {
			v += m.arLags[k] * psi[j-k]
		}
		psi[j] = v
	}
	return psi
}

// Residuals returns a copy of the in-sample one-step residuals.
func (m *Model) Residuals() []float64 {
	out := make([]float64, len(m.resid))
	copy(out, m.resid)
	return out
}

func negate(v []float64) []float64 {
	for i := range v {
		v[i] = -v[i]
	}
	return v
}
