// ABOUTME: Heart-rate ingest and reported fatigue uploads.
// ABOUTME: Runs the estimator under a per-subject lock and persists results atomically.
package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/fatigue/internal/models"
	"github.com/harperreed/fatigue/internal/wbal"
	"go.uber.org/zap"
)

// Sample is one uploaded heart-rate reading.
type Sample struct {
	HeartRate float64
	At        time.Time
}

// IngestResult reports what one upload produced.
type IngestResult struct {
	SubjectID    uuid.UUID
	Levels       []float64 // WBF per sample, in timestamp order
	WExp         float64   // seed carried into the next upload
	Observations []*models.Observation
}

// IngestHeartRates estimates fatigue for a batch of samples and stores the
// samples, one observation per sample, and the new running state.
//
// The batch is ordered by timestamp (stable for equal timestamps). The
// estimator is seeded from the subject's stored W_exp, or from zero when
// newSession is set.
func (s *Service) IngestHeartRates(ctx context.Context, subjectID string, samples []Sample, newSession bool) (*IngestResult, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no heart-rate samples", ErrValidation)
	}
	for i, smp := range samples {
		if math.IsNaN(smp.HeartRate) || math.IsInf(smp.HeartRate, 0) {
			return nil, fmt.Errorf("%w: heart_rate at index %d must be a finite number", ErrValidation, i)
		}
		if err := s.checkTimestamp(smp.At, fmt.Sprintf("timestamp at index %d", i)); err != nil {
			return nil, err
		}
	}

	subj, err := s.Subject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(subj.ID)
	defer unlock()

	// Re-read under the lock so the seed reflects any upload that finished while we waited.
	subj, err = s.lookup(subj.ID.String())
	if err != nil {
		return nil, err
	}

	ordered := make([]Sample, len(samples))
	copy(ordered, samples)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].At.Before(ordered[j].At)
	})

	hr := make([]float64, len(ordered))
	for i, smp := range ordered {
		hr[i] = smp.HeartRate
	}

	seed := subj.WExp
	if newSession {
		seed = 0
	}

	res, err := wbal.Estimate(ParamsFor(subj), hr, seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	rows := make([]*models.HeartRateSample, len(ordered))
	obs := make([]*models.Observation, len(ordered))
	for i, smp := range ordered {
		rows[i] = models.NewHeartRateSample(subj.ID, smp.HeartRate, smp.At)
		obs[i] = models.NewObservation(subj.ID, res.WBF[i], smp.At, models.SourceEstimated)
	}

	last := len(ordered) - 1
	state := models.FatigueState{
		WExp:      res.Final,
		Level:     res.WBF[last],
		UpdatedAt: ordered[last].At,
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.repo.RecordSession(subj.ID, rows, obs, state); err != nil {
		return nil, err
	}

	s.logger.Debug("heart rates ingested",
		zap.String("subject_id", subj.ID.String()),
		zap.Int("samples", len(ordered)),
		zap.Bool("new_session", newSession),
		zap.Float64("seed", seed),
		zap.Float64("w_exp", res.Final))

	return &IngestResult{
		SubjectID:    subj.ID,
		Levels:       res.WBF,
		WExp:         res.Final,
		Observations: obs,
	}, nil
}

// RecordFatigue stores a directly reported fatigue level. The stored W_exp
// seed is left unchanged.
func (s *Service) RecordFatigue(ctx context.Context, subjectID string, level float64, at time.Time) (*models.Observation, error) {
	if math.IsNaN(level) || math.IsInf(level, 0) || level < 0 {
		return nil, fmt.Errorf("%w: fatigue_level must be a non-negative number", ErrValidation)
	}
	if err := s.checkTimestamp(at, "timestamp"); err != nil {
		return nil, err
	}

	subj, err := s.Subject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(subj.ID)
	defer unlock()

	subj, err = s.lookup(subj.ID.String())
	if err != nil {
		return nil, err
	}

	obs := models.NewObservation(subj.ID, level, at, models.SourceReported)
	state := models.FatigueState{WExp: subj.WExp, Level: level, UpdatedAt: at}
	if err := s.repo.RecordObservation(obs, state); err != nil {
		return nil, err
	}

	s.logger.Debug("fatigue reported",
		zap.String("subject_id", subj.ID.String()),
		zap.Float64("level", level))
	return obs, nil
}
