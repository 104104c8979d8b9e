package prediction

import (
	"context"
	"math"

	"github.com/PeterJemley/bridget-sub000/pkg/domain"
	"github.com/PeterJemley/bridget-sub000/pkg/intelligence/stats"
)

const (
	// defaultMATheta is the fixed MA coefficient used by the minimal tier,
	// which does no MA fitting at all.
	defaultMATheta = 0.2

	// thetaLimit keeps estimated MA coefficients inside the invertible
	// region.
	thetaLimit = 0.9

	// expertIterationCap bounds the Levenberg-Marquardt refinement so the
	// expert tier always terminates.
	expertIterationCap = 20

	// expertTolerance is the relative residual improvement below which
	// refinement stops early.
	expertTolerance = 1e-6
)

// armaModel is a fitted AR(p) model with a single MA term over one series.
// tier records the tier whose estimation method actually produced the fit,
// which is lower than the requested tier after a numerical fallback.
type armaModel struct {
	tier       domain.ComputeTier
	mean       float64
	phi        []float64
	theta      float64
	residuals  []float64
	fitQuality float64
}

// modelOrder is the AR order a tier buys.
func modelOrder(tier domain.ComputeTier) int {
	switch tier.Normalize() {
	case domain.TierMinimal:
		return 1
	case domain.TierAdvanced:
		return 3
	case domain.TierExpert:
		return 4
	default:
		return 2
	}
}

// fitSeries fits the highest-tier model the series supports, degrading one
// tier at a time when a fit is numerically unstable or the series is too
// short for the order. The minimal tier always succeeds.
func fitSeries(ctx context.Context, series []float64, tier domain.ComputeTier) armaModel {
	tier = tier.Normalize()
	if tier == domain.TierExpert {
		if model, ok := fitExpert(ctx, series); ok {
			return model
		}
		tier = domain.TierAdvanced
	}
	for ; tier > domain.TierMinimal; tier-- {
		if model, ok := fitWithYuleWalker(series, tier); ok {
			return model
		}
	}
	return fitMinimal(series)
}

// fitMinimal estimates AR(1) from the lag-1 autocorrelation and pins the
// MA coefficient at its default. It cannot fail: a flat or tiny series
// collapses to a mean-only model.
func fitMinimal(series []float64) armaModel {
	centered, mean := center(series)
	phi := []float64{stats.Autocorrelation(series, 1)}
	residuals := armaResiduals(centered, phi, 0)
	return armaModel{
		tier:       domain.TierMinimal,
		mean:       mean,
		phi:        phi,
		theta:      defaultMATheta,
		residuals:  residuals,
		fitQuality: fitQuality(series, residuals),
	}
}

// fitWithYuleWalker estimates the tier's AR order from the autocovariance
// sequence and approximates the MA coefficient from the lag-1
// autocorrelation of the AR residuals.
func fitWithYuleWalker(series []float64, tier domain.ComputeTier) (armaModel, bool) {
	phi, ok := yuleWalker(series, modelOrder(tier))
	if !ok {
		return armaModel{}, false
	}

	centered, mean := center(series)
	residuals := armaResiduals(centered, phi, 0)
	theta := stats.Clamp(stats.Autocorrelation(residuals, 1), -thetaLimit, thetaLimit)
	return armaModel{
		tier:       tier,
		mean:       mean,
		phi:        phi,
		theta:      theta,
		residuals:  residuals,
		fitQuality: fitQuality(series, residuals),
	}, true
}

// fitExpert seeds AR(4) plus an MA(1) estimate from Yule-Walker, then
// jointly refines all five coefficients with a damped Gauss-Newton
// iteration against the one-step-ahead residuals.
func fitExpert(ctx context.Context, series []float64) (armaModel, bool) {
	order := modelOrder(domain.TierExpert)
	if len(series) < 2*(order+1) {
		return armaModel{}, false
	}

	phi, ok := yuleWalker(series, order)
	if !ok {
		return armaModel{}, false
	}
	centered, mean := center(series)
	seedResiduals := armaResiduals(centered, phi, 0)
	theta := stats.Clamp(stats.Autocorrelation(seedResiduals, 1), -thetaLimit, thetaLimit)

	initial := append(append([]float64(nil), phi...), theta)
	fitted, ok := levenbergMarquardt(ctx, initial, func(params []float64) []float64 {
		return armaResiduals(centered, params[:order], params[order])
	}, expertIterationCap, expertTolerance)
	if !ok {
		return armaModel{}, false
	}
	for _, v := range fitted {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return armaModel{}, false
		}
	}

	finalPhi := fitted[:order]
	finalTheta := stats.Clamp(fitted[order], -thetaLimit, thetaLimit)
	residuals := armaResiduals(centered, finalPhi, finalTheta)
	return armaModel{
		tier:       domain.TierExpert,
		mean:       mean,
		phi:        finalPhi,
		theta:      finalTheta,
		residuals:  residuals,
		fitQuality: fitQuality(series, residuals),
	}, true
}

// forecastNext produces the one-step-ahead prediction for the series the
// model was fitted on.
func (m armaModel) forecastNext(series []float64) float64 {
	next := m.mean
	for k, coeff := range m.phi {
		idx := len(series) - 1 - k
		if idx < 0 {
			break
		}
		next += coeff * (series[idx] - m.mean)
	}
	if len(m.residuals) > 0 {
		next += m.theta * m.residuals[len(m.residuals)-1]
	}
	return next
}

// armaResiduals computes one-step-ahead residuals over a centered series
// for AR coefficients phi (most recent lag first) and MA coefficient
// theta. The pre-sample residual is taken as zero.
func armaResiduals(centered []float64, phi []float64, theta float64) []float64 {
	order := len(phi)
	if len(centered) <= order {
		return nil
	}

	residuals := make([]float64, 0, len(centered)-order)
	prev := 0.0
	for i := order; i < len(centered); i++ {
		pred := theta * prev
		for k, coeff := range phi {
			pred += coeff * centered[i-1-k]
		}
		r := centered[i] - pred
		residuals = append(residuals, r)
		prev = r
	}
	return residuals
}

// center returns the series minus its mean, and the mean itself.
func center(series []float64) ([]float64, float64) {
	mean := stats.Mean(series)
	out := make([]float64, len(series))
	for i, v := range series {
		out[i] = v - mean
	}
	return out, mean
}

// fitQuality maps in-sample residual error onto [0,1] as one minus the
// range-normalized RMSE. A flat series the model reproduces exactly scores
// 1; an empty residual set scores 0.
func fitQuality(series, residuals []float64) float64 {
	if len(residuals) == 0 {
		return 0
	}
	rmse := stats.RMSE(residuals)
	min, max := stats.Range(series)
	span := max - min
	if span < 1e-9 {
		if rmse < 1e-9 {
			return 1
		}
		return 0
	}
	return stats.Clamp01(1 - rmse/span)
}
