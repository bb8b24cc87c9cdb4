// ABOUTME: Peer-facing views: hourly summary for one subject and group listings.
// ABOUTME: Also logs when a subject opens or closes a peer's view.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/fatigue/internal/hourly"
	"github.com/harperreed/fatigue/internal/models"
	"go.uber.org/zap"
)

// Summary is the hourly view of one subject's current local day.
type Summary struct {
	Subject *models.Subject
	Day     hourly.Day
	Now     time.Time // in the display timezone
}

// PeerSummary buckets the subject's observations from the trailing window
// into today's 24 local hours.
func (s *Service) PeerSummary(ctx context.Context, subjectID string) (*Summary, error) {
	subj, err := s.Subject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	loc, window := s.Location(), s.Window()
	since := now.Add(-window)

	stored, err := s.repo.ListObservations(subj.ID, &since, nil)
	if err != nil {
		return nil, err
	}

	obs := make([]hourly.Observation, len(stored))
	for i, o := range stored {
		obs[i] = hourly.Observation{Level: o.Level, At: o.RecordedAt}
	}

	day, err := hourly.Aggregate(obs, now, hourly.InLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("aggregate observations: %w", err)
	}

	return &Summary{Subject: subj, Day: day, Now: now.In(loc)}, nil
}

// Peer is one entry of a group listing.
type Peer struct {
	ID           string  `json:"user_id"`
	FirstName    string  `json:"first_name"`
	FatigueLevel float64 `json:"fatigue_level"`
	LastUpdate   int64   `json:"last_update"` // unix seconds, 0 when never updated
}

// Group lists the subjects of a group with their latest fatigue level.
func (s *Service) Group(ctx context.Context, groupID string) ([]Peer, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, fmt.Errorf("%w: group_id is required", ErrValidation)
	}
	subjects, err := s.Subjects(ctx, &groupID)
	if err != nil {
		return nil, err
	}

	peers := make([]Peer, 0, len(subjects))
	for _, subj := range subjects {
		p := Peer{
			ID:           subj.ID.String(),
			FirstName:    subj.FirstName,
			FatigueLevel: subj.FatigueLevel,
		}
		if subj.LastUpdate != nil {
			p.LastUpdate = subj.LastUpdate.Unix()
		}
		peers = append(peers, p)
	}
	return peers, nil
}

// LogActivity records subjectID opening (open=true) or closing a peer's view.
func (s *Service) LogActivity(ctx context.Context, subjectID, peerID string, at time.Time, open bool) (*models.Activity, error) {
	if err := s.checkTimestamp(at, "timestamp"); err != nil {
		return nil, err
	}
	subj, err := s.Subject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	peer, err := s.Subject(ctx, peerID)
	if err != nil {
		return nil, err
	}

	a := models.NewActivity(subj.ID, peer.ID, at, open)
	if err := s.repo.AddActivity(a); err != nil {
		return nil, err
	}
	s.logger.Debug("activity logged",
		zap.String("subject_id", subj.ID.String()),
		zap.String("peer_id", peer.ID.String()),
		zap.Bool("open", open))
	return a, nil
}

// Activities lists recent activity, most recent first, optionally for one subject.
func (s *Service) Activities(ctx context.Context, subjectID string, limit int) ([]*models.Activity, error) {
	if subjectID == "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return s.repo.ListActivities(nil, limit)
	}
	subj, err := s.Subject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListActivities(&subj.ID, limit)
}

// Observations lists a subject's stored observations in [since, until).
func (s *Service) Observations(ctx context.Context, subjectID string, since, until *time.Time) ([]*models.Observation, error) {
	subj, err := s.Subject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListObservations(subj.ID, since, until)
}

// HeartRates lists a subject's most recent samples, oldest first.
func (s *Service) HeartRates(ctx context.Context, subjectID string, limit int) ([]*models.HeartRateSample, error) {
	subj, err := s.Subject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListHeartRates(subj.ID, nil, limit)
}
