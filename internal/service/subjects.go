// ABOUTME: Subject registration, login, and lookup.
// ABOUTME: Registration by name creates a profile or updates the existing one.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harperreed/fatigue/internal/models"
	"github.com/harperreed/fatigue/internal/storage"
	"go.uber.org/zap"
)

// Registration is a create-or-update request. Nil fields fall back to the
// existing profile on update and to the configured defaults on create.
type Registration struct {
	FirstName string
	LastName  string
	GroupID   string
	Age       *int
	RestHR    *float64
	HRRCP     *float64
	WTotal    *float64
	K         *float64
	R         *float64
}

// Register creates a subject, or updates the one already registered under
// the same first and last name. created reports which happened.
func (s *Service) Register(ctx context.Context, reg Registration) (subj *models.Subject, created bool, err error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)
	reg.GroupID = strings.TrimSpace(reg.GroupID)
	if reg.FirstName == "" {
		return nil, false, fmt.Errorf("%w: first_name is required", ErrValidation)
	}

	s.regMu.Lock()
	defer s.regMu.Unlock()

	existing, err := s.repo.FindSubjectByName(reg.FirstName, reg.LastName)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		subj = s.newSubject(reg)
		created = true
	case err != nil:
		return nil, false, fmt.Errorf("find subject: %w", err)
	default:
		unlock := s.locks.Lock(existing.ID)
		defer unlock()
		if subj, err = s.lookup(existing.ID.String()); err != nil {
			return nil, false, err
		}
		applyRegistration(subj, reg)
	}

	if err := subj.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if created {
		err = s.repo.CreateSubject(subj)
	} else {
		err = s.repo.UpdateSubject(subj)
	}
	if err != nil {
		return nil, false, err
	}

	s.logger.Info("subject registered",
		zap.String("subject_id", subj.ID.String()),
		zap.String("group_id", subj.GroupID),
		zap.Bool("created", created))
	return subj, created, nil
}

func (s *Service) newSubject(reg Registration) *models.Subject {
	d := s.defaults
	subj := models.NewSubject(reg.FirstName, reg.LastName, reg.GroupID, d.Age).
		WithRestHR(d.RestHR).
		WithThreshold(d.HRRCP).
		WithCapacity(d.WTotal).
		WithRates(d.K, d.R)
	applyRegistration(subj, reg)
	return subj
}

func applyRegistration(subj *models.Subject, reg Registration) {
	subj.FirstName = reg.FirstName
	subj.LastName = reg.LastName
	if reg.GroupID != "" {
		subj.GroupID = reg.GroupID
	}
	if reg.Age != nil {
		subj.WithAge(*reg.Age)
	}
	if reg.RestHR != nil {
		subj.WithRestHR(*reg.RestHR)
	}
	if reg.HRRCP != nil {
		subj.WithThreshold(*reg.HRRCP)
	}
	if reg.WTotal != nil {
		subj.WithCapacity(*reg.WTotal)
	}
	k, r := subj.K, subj.R
	if reg.K != nil {
		k = *reg.K
	}
	if reg.R != nil {
		r = *reg.R
	}
	subj.WithRates(k, r)
}

// Login finds a subject by name.
func (s *Service) Login(ctx context.Context, firstName, lastName string) (*models.Subject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	firstName = strings.TrimSpace(firstName)
	if firstName == "" {
		return nil, fmt.Errorf("%w: first_name is required", ErrValidation)
	}
	subj, err := s.repo.FindSubjectByName(firstName, strings.TrimSpace(lastName))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s %s", ErrSubjectNotFound, firstName, lastName)
	}
	if err != nil {
		return nil, fmt.Errorf("find subject: %w", err)
	}
	return subj, nil
}

// Subject returns one subject by ID or ID prefix.
func (s *Service) Subject(ctx context.Context, idOrPrefix string) (*models.Subject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.lookup(idOrPrefix)
}

// Subjects lists subjects, optionally within one group.
func (s *Service) Subjects(ctx context.Context, groupID *string) ([]*models.Subject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.repo.ListSubjects(groupID)
}

// DeleteSubject removes a subject and everything recorded for it.
func (s *Service) DeleteSubject(ctx context.Context, idOrPrefix string) (*models.Subject, error) {
	subj, err := s.Subject(ctx, idOrPrefix)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(subj.ID)
	defer unlock()

	if err := s.repo.DeleteSubject(subj.ID.String()); err != nil {
		return nil, err
	}
	s.logger.Info("subject deleted", zap.String("subject_id", subj.ID.String()))
	return subj, nil
}
