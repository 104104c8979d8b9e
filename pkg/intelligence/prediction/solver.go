package prediction

import (
	"context"
	"math"

	"github.com/PeterJemley/bridget-sub000/pkg/intelligence/stats"
)

const (
	// conditionFloor is the pivot-ratio condition estimate below which a
	// linear system is treated as near-singular.
	conditionFloor = 1e-10

	// varianceFloor is the lag-0 autocovariance below which a series is
	// treated as flat.
	varianceFloor = 1e-12

	// dampingCeiling aborts a Levenberg-Marquardt run whose damping factor
	// has grown past the point of useful steps.
	dampingCeiling = 1e9
)

// solveLinear solves a square system via Gaussian elimination with partial
// pivoting. The condition estimate is the ratio of the smallest to the
// largest absolute pivot encountered; ok is false for non-square input,
// exact singularity, or a non-finite solution.
func solveLinear(a [][]float64, b []float64) ([]float64, float64, bool) {
	n := len(a)
	if n == 0 || len(b) != n {
		return nil, 0, false
	}

	m := make([][]float64, n)
	for i := range a {
		if len(a[i]) != n {
			return nil, 0, false
		}
		m[i] = append([]float64(nil), a[i]...)
	}
	rhs := append([]float64(nil), b...)

	minPivot := math.Inf(1)
	maxPivot := 0.0
	for col := 0; col < n; col++ {
		pivotRow := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivotRow][col]) {
				pivotRow = r
			}
		}
		m[col], m[pivotRow] = m[pivotRow], m[col]
		rhs[col], rhs[pivotRow] = rhs[pivotRow], rhs[col]

		pivot := math.Abs(m[col][col])
		if pivot == 0 {
			return nil, 0, false
		}
		if pivot > maxPivot {
			maxPivot = pivot
		}
		if pivot < minPivot {
			minPivot = pivot
		}

		for r := col + 1; r < n; r++ {
			factor := m[r][col] / m[col][col]
			if factor == 0 {
				continue
			}
			for c := col; c < n; c++ {
				m[r][c] -= factor * m[col][c]
			}
			rhs[r] -= factor * rhs[col]
		}
	}

	out := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := rhs[i]
		for j := i + 1; j < n; j++ {
			sum -= m[i][j] * out[j]
		}
		out[i] = sum / m[i][i]
	}

	condition := minPivot / maxPivot
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, condition, false
		}
	}
	return out, condition, true
}

// yuleWalker estimates AR coefficients of the given order from the series'
// autocovariance sequence. ok is false when the series is too short or too
// flat for the order, or when the Toeplitz system is near-singular.
func yuleWalker(series []float64, order int) ([]float64, bool) {
	if order < 1 || len(series) < order+2 {
		return nil, false
	}

	cov := make([]float64, order+1)
	for lag := 0; lag <= order; lag++ {
		cov[lag] = stats.Autocovariance(series, lag)
	}
	if cov[0] < varianceFloor {
		return nil, false
	}

	a := make([][]float64, order)
	b := make([]float64, order)
	for i := 0; i < order; i++ {
		a[i] = make([]float64, order)
		for j := 0; j < order; j++ {
			a[i][j] = cov[intAbs(i-j)]
		}
		b[i] = cov[i+1]
	}

	phi, condition, ok := solveLinear(a, b)
	if !ok || condition < conditionFloor {
		return nil, false
	}
	return phi, true
}

// residualFunc maps a parameter vector to its residual vector.
type residualFunc func(params []float64) []float64

// levenbergMarquardt minimizes a residual sum of squares with a damped
// Gauss-Newton iteration, estimating the Jacobian by forward differences.
// It stops at the iteration cap, on a relative improvement below tol, or
// when damping escalates past dampingCeiling, and returns the best
// parameters seen. ok is false only when fn yields no residuals.
func levenbergMarquardt(ctx context.Context, initial []float64, fn residualFunc, maxIterations int, tol float64) ([]float64, bool) {
	params := append([]float64(nil), initial...)
	residuals := fn(params)
	if len(residuals) == 0 {
		return params, false
	}
	rss := sumSquares(residuals)

	lambda := 1e-3
	for iter := 0; iter < maxIterations; iter++ {
		if ctx.Err() != nil {
			break
		}

		jac := numericJacobian(fn, params, residuals)
		jtj, jtr := normalEquations(jac, residuals)

		damped := make([][]float64, len(params))
		for i := range jtj {
			damped[i] = append([]float64(nil), jtj[i]...)
			damped[i][i] += lambda * (jtj[i][i] + 1e-12)
		}
		neg := make([]float64, len(jtr))
		for i, v := range jtr {
			neg[i] = -v
		}

		step, condition, ok := solveLinear(damped, neg)
		if !ok || condition < conditionFloor {
			lambda *= 10
			if lambda > dampingCeiling {
				break
			}
			continue
		}

		trial := make([]float64, len(params))
		for i := range params {
			trial[i] = params[i] + step[i]
		}
		trialResiduals := fn(trial)
		trialRSS := sumSquares(trialResiduals)

		if trialRSS < rss {
			improvement := (rss - trialRSS) / math.Max(rss, 1e-12)
			params, residuals, rss = trial, trialResiduals, trialRSS
			lambda = math.Max(lambda*0.1, 1e-12)
			if improvement < tol {
				break
			}
		} else {
			lambda *= 10
			if lambda > dampingCeiling {
				break
			}
		}
	}
	return params, true
}

// numericJacobian estimates d(residual)/d(param) by forward differences
// around the current parameters.
func numericJacobian(fn residualFunc, params, base []float64) [][]float64 {
	jac := make([][]float64, len(base))
	for i := range jac {
		jac[i] = make([]float64, len(params))
	}
	for j := range params {
		h := 1e-6 * math.Max(math.Abs(params[j]), 1.0)
		bumped := append([]float64(nil), params...)
		bumped[j] += h
		shifted := fn(bumped)
		for i := range base {
			jac[i][j] = (shifted[i] - base[i]) / h
		}
	}
	return jac
}

// normalEquations folds a Jacobian and residual vector into the
// Gauss-Newton normal system (JᵀJ, Jᵀr).
func normalEquations(jac [][]float64, residuals []float64) ([][]float64, []float64) {
	cols := 0
	if len(jac) > 0 {
		cols = len(jac[0])
	}
	jtj := make([][]float64, cols)
	for i := range jtj {
		jtj[i] = make([]float64, cols)
	}
	jtr := make([]float64, cols)

	for r, row := range jac {
		for i := 0; i < cols; i++ {
			jtr[i] += row[i] * residuals[r]
			for j := i; j < cols; j++ {
				jtj[i][j] += row[i] * row[j]
			}
		}
	}
	for i := 0; i < cols; i++ {
		for j := 0; j < i; j++ {
			jtj[i][j] = jtj[j][i]
		}
	}
	return jtj, jtr
}

func sumSquares(v []float64) float64 {
	total := 0.0
	for _, x := range v {
		total += x * x
	}
	return total
}

func intAbs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
