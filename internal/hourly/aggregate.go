// ABOUTME: Hourly aggregation of fatigue observations for the current local day.
// ABOUTME: Produces exactly 24 buckets with range and mean, sentinel-filled when empty.
package hourly

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// HoursPerDay is the fixed number of buckets in a Day.
const HoursPerDay = 24

// EmptyValue fills the range of a bucket with no observations.
const EmptyValue = -1.0

// ErrInvalidObservation is returned for observations missing a timestamp or a numeric level.
var ErrInvalidObservation = errors.New("invalid observation")

// Observation is the minimal input the aggregator needs.
type Observation struct {
	Level float64
	At    time.Time
}

// Converter maps a UTC instant to the display timezone.
type Converter func(time.Time) time.Time

// InLocation returns a Converter for a fixed location.
func InLocation(loc *time.Location) Converter {
	return func(t time.Time) time.Time {
		return t.In(loc)
	}
}

// Bucket summarizes one local hour.
type Bucket struct {
	Hour  int        `json:"hour_from_midnight"`
	Range [2]float64 `json:"fatigue_level_range"`
	Mean  *float64   `json:"avg_fatigue_level"` // nil when the hour has no data
	Count int        `json:"count"`
}

// Empty reports whether the bucket had no observations.
func (b Bucket) Empty() bool {
	return b.Count == 0
}

// Day is the per-hour summary of one local calendar day.
type Day [HoursPerDay]Bucket

// Means returns the bucket means with empty hours mapped to fill.
func (d Day) Means(fill float64) []float64 {
	out := make([]float64, HoursPerDay)
	for i, b := range d {
		if b.Mean == nil {
			out[i] = fill
			continue
		}
		out[i] = *b.Mean
	}
	return out
}

// Aggregate buckets observations by local hour for now's local calendar day.
//
// Observations from any other local date are dropped, even when the caller's
// query window reaches into the previous day.
func Aggregate(obs []Observation, now time.Time, toLocal Converter) (Day, error) {
	for i, o := range obs {
		if o.At.IsZero() {
			return Day{}, fmt.Errorf("%w: observation %d has no timestamp", ErrInvalidObservation, i)
		}
		if math.IsNaN(o.Level) || math.IsInf(o.Level, 0) {
			return Day{}, fmt.Errorf("%w: observation %d level is not a number", ErrInvalidObservation, i)
		}
	}

	localNow := toLocal(now)
	y, m, d := localNow.Date()

	var groups [HoursPerDay][]float64
	for _, o := range obs {
		local := toLocal(o.At)
		ly, lm, ld := local.Date()
		if ly != y || lm != m || ld != d {
			continue
		}
		h := local.Hour()
		groups[h] = append(groups[h], o.Level)
	}

	var day Day
	for h, values := range groups {
		day[h] = summarize(h, values)
	}
	return day, nil
}

func summarize(hour int, values []float64) Bucket {
	if len(values) == 0 {
		return Bucket{Hour: hour, Range: [2]float64{EmptyValue, EmptyValue}}
	}

	lo, hi, sum := values[0], values[0], 0.0
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		sum += v
	}
	mean := sum / float64(len(values))

	return Bucket{
		Hour:  hour,
		Range: [2]float64{lo, hi},
		Mean:  &mean,
		Count: len(values),
	}
}
