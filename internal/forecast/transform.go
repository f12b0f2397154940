package forecast

import "math"

// constrainStationary maps unconstrained reals to coefficients of a stationary
// AR polynomial through partial autocorrelations in (-1, 1). The same map
// gives an invertible MA polynomial once the sign is flipped.
func constrainStationary(x []float64) []float64 {
	n := len(x)
	if n == 0 {
		return nil
	}
	r := make([]float64, n)
	for i, v := range x {
		r[i] = v / math.Sqrt(1+v*v)
	}

	prev := make([]float64, n)
	cur := make([]float64, n)
	for k := 0; k < n; k++ {
		for i := 0; i < k; i++ {
			cur[i] = prev[i] + r[k]*prev[k-i-1]
		}
		cur[k] = r[k]
		copy(prev, cur)
	}

	out := make([]float64, n)
	for i, v := range cur {
		out[i] = -v
	}
	return out
}

// polyMul multiplies two lag polynomials given as coefficient slices, lowest
// power first.
func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		if av == 0 {
			continue
		}
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}
	return out
}

// lagPoly builds 1 + sign*(c1 B^s + c2 B^2s + ...).
func lagPoly(coef []float64, s int, sign float64) []float64 {
	p := make([]float64, len(coef)*s+1)
	p[0] = 1
	for i, c := range coef {
		p[(i+1)*s] = sign * c
	}
	return p
}
