// ABOUTME: Tests for hourly aggregation of fatigue observations.
// ABOUTME: Covers empty-hour sentinels and the local-day filter.
package hourly

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

// est is a fixed UTC-5 zone so day boundaries do not depend on tzdata.
var est = time.FixedZone("EST", -5*3600)

func localAt(day, hour, minute int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, 0, 0, est).UTC()
}

func TestAggregateEmptyInput(t *testing.T) {
	now := localAt(10, 14, 0)

	day, err := Aggregate(nil, now, InLocation(est))
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}

	if len(day) != HoursPerDay {
		t.Fatalf("got %d buckets, want %d", len(day), HoursPerDay)
	}
	for h, b := range day {
		if b.Hour != h {
			t.Errorf("bucket %d has Hour %d", h, b.Hour)
		}
		if b.Range != [2]float64{-1, -1} {
			t.Errorf("bucket %d Range = %v, want [-1 -1]", h, b.Range)
		}
		if b.Mean != nil {
			t.Errorf("bucket %d Mean = %v, want nil", h, *b.Mean)
		}
		if !b.Empty() {
			t.Errorf("bucket %d should be empty", h)
		}
	}
}

func TestAggregateRangeAndMean(t *testing.T) {
	now := localAt(10, 14, 0)
	obs := []Observation{
		{Level: 10, At: localAt(10, 5, 5)},
		{Level: 20, At: localAt(10, 5, 40)},
	}

	day, err := Aggregate(obs, now, InLocation(est))
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}

	b := day[5]
	if b.Range != [2]float64{10, 20} {
		t.Errorf("Range = %v, want [10 20]", b.Range)
	}
	if b.Mean == nil || *b.Mean != 15.0 {
		t.Errorf("Mean = %v, want 15", b.Mean)
	}
	if b.Count != 2 {
		t.Errorf("Count = %d, want 2", b.Count)
	}

	for h, other := range day {
		if h != 5 && !other.Empty() {
			t.Errorf("bucket %d unexpectedly non-empty: %+v", h, other)
		}
	}
}

func TestAggregateUsesLocalHour(t *testing.T) {
	now := time.Date(2025, time.March, 10, 20, 0, 0, 0, time.UTC) // 15:00 EST
	obs := []Observation{{Level: 0.4, At: time.Date(2025, time.March, 10, 10, 30, 0, 0, time.UTC)}}

	day, err := Aggregate(obs, now, InLocation(est))
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}

	if day[5].Count != 1 {
		t.Errorf("expected observation in local hour 5, got buckets: 5=%d 10=%d", day[5].Count, day[10].Count)
	}
}

func TestAggregateDropsOtherLocalDays(t *testing.T) {
	now := localAt(10, 1, 30)
	obs := []Observation{
		{Level: 5, At: localAt(9, 23, 59)}, // previous local day, inside a 24h window
		{Level: 7, At: localAt(10, 0, 0)},  // exactly local midnight
		{Level: 9, At: localAt(10, 1, 15)}, // today
		{Level: 3, At: localAt(11, 0, 10)}, // tomorrow
	}

	day, err := Aggregate(obs, now, InLocation(est))
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}

	if day[23].Count != 0 {
		t.Errorf("previous-day observation leaked into hour 23")
	}
	if day[0].Count != 1 {
		t.Errorf("hour 0 Count = %d, want 1 (midnight sample belongs to today, tomorrow dropped)", day[0].Count)
	}
	if day[0].Range != [2]float64{7, 7} {
		t.Errorf("hour 0 Range = %v, want [7 7]", day[0].Range)
	}
	if day[1].Count != 1 {
		t.Errorf("hour 1 Count = %d, want 1", day[1].Count)
	}
}

func TestAggregateDuplicateTimestamps(t *testing.T) {
	now := localAt(10, 12, 0)
	at := localAt(10, 8, 0)
	obs := []Observation{{Level: 1, At: at}, {Level: 3, At: at}, {Level: 2, At: at}}

	day, err := Aggregate(obs, now, InLocation(est))
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}

	b := day[8]
	if b.Count != 3 || b.Range != [2]float64{1, 3} || *b.Mean != 2 {
		t.Errorf("unexpected bucket: %+v mean=%v", b, *b.Mean)
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	now := localAt(10, 18, 0)
	obs := []Observation{
		{Level: 0.2, At: localAt(10, 9, 0)},
		{Level: 0.6, At: localAt(10, 9, 30)},
		{Level: 1.1, At: localAt(10, 17, 45)},
	}

	first, err := Aggregate(obs, now, InLocation(est))
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}
	second, err := Aggregate(obs, now, InLocation(est))
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ between calls:\n%+v\n%+v", first, second)
	}
}

func TestAggregateInvalidObservations(t *testing.T) {
	now := localAt(10, 12, 0)
	tests := []struct {
		name string
		obs  []Observation
	}{
		{"missing timestamp", []Observation{{Level: 1}}},
		{"NaN level", []Observation{{Level: math.NaN(), At: localAt(10, 1, 0)}}},
		{"infinite level", []Observation{{Level: math.Inf(-1), At: localAt(10, 1, 0)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Aggregate(tt.obs, now, InLocation(est))
			if !errors.Is(err, ErrInvalidObservation) {
				t.Errorf("Aggregate() error = %v, want ErrInvalidObservation", err)
			}
		})
	}
}

func TestDayMeans(t *testing.T) {
	now := localAt(10, 12, 0)
	obs := []Observation{{Level: 4, At: localAt(10, 2, 0)}, {Level: 6, At: localAt(10, 2, 30)}}

	day, err := Aggregate(obs, now, InLocation(est))
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}

	means := day.Means(0)
	if len(means) != HoursPerDay {
		t.Fatalf("len(Means) = %d", len(means))
	}
	if means[2] != 5 {
		t.Errorf("Means[2] = %v, want 5", means[2])
	}
	if means[3] != 0 {
		t.Errorf("Means[3] = %v, want fill 0", means[3])
	}
}
