// ABOUTME: Fatigue service tying storage to the estimator and the hourly aggregator.
// ABOUTME: Owns the clock, the display timezone, and per-subject serialization of ingest.
package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/fatigue/internal/models"
	"github.com/harperreed/fatigue/internal/storage"
	"github.com/harperreed/fatigue/internal/wbal"
	"go.uber.org/zap"
)

var (
	// ErrValidation marks caller input that was rejected before any state changed.
	ErrValidation = errors.New("validation failed")
	// ErrSubjectNotFound is returned when a subject ID, prefix, or name has no match.
	ErrSubjectNotFound = errors.New("subject not found")
)

// DefaultWindow is the trailing observation window used for peer summaries.
const DefaultWindow = 24 * time.Hour

// MaxClockSkew bounds how far in the future an uploaded timestamp may be.
const MaxClockSkew = 5 * time.Minute

// Service runs the ingest pipeline and builds peer views.
type Service struct {
	repo     storage.Repository
	logger   *zap.Logger
	now      func() time.Time
	defaults models.Profile
	locks    *keyedMutex
	regMu    sync.Mutex

	mu     sync.RWMutex
	zone   *time.Location
	window time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the timezone used to bucket observations by hour.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.zone = loc }
}

// WithWindow sets the trailing window for peer summaries.
func WithWindow(d time.Duration) Option {
	return func(s *Service) { s.window = d }
}

// WithLogger sets the logger; the service logs under the "service" name.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithDefaults sets the profile used to fill unset registration fields.
func WithDefaults(p models.Profile) Option {
	return func(s *Service) { s.defaults = p }
}

// New creates a Service over repo.
func New(repo storage.Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		logger:   zap.NewNop(),
		now:      time.Now,
		defaults: models.DefaultProfile(),
		locks:    newKeyedMutex(),
		zone:     time.UTC,
		window:   DefaultWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("service")
	return s
}

// SetLocation swaps the display timezone; safe while serving.
func (s *Service) SetLocation(loc *time.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zone = loc
}

// SetWindow swaps the summary window; safe while serving.
func (s *Service) SetWindow(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = d
}

// Location returns the current display timezone.
func (s *Service) Location() *time.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.zone
}

// Window returns the current summary window.
func (s *Service) Window() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.window
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// ParamsFor maps a subject profile onto estimator parameters.
func ParamsFor(subj *models.Subject) wbal.Params {
	return wbal.Params{
		RestHR: subj.RestHR,
		MaxHR:  subj.MaxHR,
		HRRCP:  subj.HRRCP,
		K:      subj.K,
		R:      subj.R,
		WTotal: subj.WTotal,
	}
}

// lookup resolves an ID or prefix into a subject, translating storage errors.
func (s *Service) lookup(idOrPrefix string) (*models.Subject, error) {
	if idOrPrefix == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	subj, err := s.repo.GetSubject(idOrPrefix)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("%w: %s", ErrSubjectNotFound, idOrPrefix)
	case errors.Is(err, storage.ErrAmbiguousPrefix):
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	case err != nil:
		return nil, fmt.Errorf("get subject: %w", err)
	}
	return subj, nil
}

// checkTimestamp rejects missing timestamps and ones too far in the future.
func (s *Service) checkTimestamp(at time.Time, field string) error {
	if at.IsZero() {
		return fmt.Errorf("%w: %s is required", ErrValidation, field)
	}
	if at.After(s.now().Add(MaxClockSkew)) {
		return fmt.Errorf("%w: %s %s is in the future", ErrValidation, field, at.UTC().Format(time.RFC3339))
	}
	return nil
}

// keyedMutex serializes work per subject while leaving other subjects unblocked.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*refLock)}
}

// Lock blocks until id is free and returns the matching unlock.
func (k *keyedMutex) Lock(id uuid.UUID) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &refLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
