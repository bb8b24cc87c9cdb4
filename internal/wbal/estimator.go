// ABOUTME: W' balance estimator turning heart-rate samples into fatigue values.
// ABOUTME: Pure recurrence; continuity between batches is carried by an explicit seed.
package wbal

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned for non-finite heart rates or unusable parameters.
var ErrInvalidInput = errors.New("invalid estimator input")

// ErrNegativeSeed is returned when the supplied W_exp seed is below zero.
var ErrNegativeSeed = errors.New("negative W_exp seed")

// Params are the per-subject constants of the depletion/recovery model.
type Params struct {
	RestHR float64
	MaxHR  float64
	HRRCP  float64 // critical heart-rate reserve, percent
	K      float64 // depletion rate
	R      float64 // recovery rate
	WTotal float64 // normalization constant
}

// Validate checks the parameters before any sample is processed.
func (p Params) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"rest_hr", p.RestHR}, {"max_hr", p.MaxHR}, {"hrr_cp", p.HRRCP},
		{"k", p.K}, {"r", p.R}, {"w_total", p.WTotal},
	}
	for _, f := range fields {
		if !finite(f.v) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidInput, f.name)
		}
	}
	if p.MaxHR <= p.RestHR {
		return fmt.Errorf("%w: max_hr (%v) must exceed rest_hr (%v)", ErrInvalidInput, p.MaxHR, p.RestHR)
	}
	if p.WTotal <= 0 {
		return fmt.Errorf("%w: w_total must be positive, got %v", ErrInvalidInput, p.WTotal)
	}
	return nil
}

// Result holds the per-sample outputs of one Estimate call.
type Result struct {
	HRR   []float64 // heart-rate reserve, percent
	WExp  []float64 // work expended, never negative
	WBF   []float64 // WExp / WTotal
	Final float64   // seed for the next batch
}

// HeartRateReserve returns the share of the heart-rate range in use, as a percent.
// No clamping: values below rest are negative, values above max exceed 100.
func HeartRateReserve(hr, restHR, maxHR float64) float64 {
	return (hr - restHR) / (maxHR - restHR) * 100
}

// Step advances W_exp by one sample.
//
// Above the threshold capacity depletes linearly with the distance above it;
// at or below the threshold it recovers linearly, floored at zero.
func Step(prev, hrr float64, p Params) float64 {
	if hrr > p.HRRCP {
		return prev + p.K*(hrr-p.HRRCP)
	}
	return math.Max(prev-p.R*(p.HRRCP-hrr), 0)
}

// Estimate runs the W' balance recurrence over hr, starting from seed.
//
// Inputs are validated before the recurrence starts, so an error means no
// values were produced. An empty hr returns empty slices and Final == seed.
func Estimate(p Params, hr []float64, seed float64) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if !finite(seed) {
		return Result{}, fmt.Errorf("%w: seed is not finite", ErrInvalidInput)
	}
	if seed < 0 {
		return Result{}, fmt.Errorf("%w: %v", ErrNegativeSeed, seed)
	}
	for i, v := range hr {
		if !finite(v) {
			return Result{}, fmt.Errorf("%w: heart rate at index %d is not finite", ErrInvalidInput, i)
		}
	}

	res := Result{
		HRR:   make([]float64, len(hr)),
		WExp:  make([]float64, len(hr)),
		WBF:   make([]float64, len(hr)),
		Final: seed,
	}

	prev := seed
	for i, v := range hr {
		hrr := HeartRateReserve(v, p.RestHR, p.MaxHR)
		w := Step(prev, hrr, p)
		assertNonNegative(w, i)

		res.HRR[i] = hrr
		res.WExp[i] = w
		res.WBF[i] = w / p.WTotal
		prev = w
	}
	res.Final = prev

	return res, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
