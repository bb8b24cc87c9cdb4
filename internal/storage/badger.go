// ABOUTME: Badger key-value implementation of the fatigue Repository.
// ABOUTME: Records are JSON values under ordered keys so time-range scans are prefix seeks.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/harperreed/fatigue/internal/models"
)

// Key layout:
//
//	subject:<id>
//	hr:<subject>:<unix seconds>:<seq>
//	obs:<subject>:<unix seconds>:<seq>
//	activity:<unix seconds>:<seq>
//
// Numbers are zero-padded to 20 digits so keys sort in time order, and seq
// keeps insertion order for records sharing a second.
const (
	subjectPrefix  = "subject:"
	hrPrefix       = "hr:"
	obsPrefix      = "obs:"
	activityPrefix = "activity:"
	seqKey         = "meta:seq"
)

// KVStore stores fatigue data in a Badger database.
type KVStore struct {
	db  *badger.DB
	seq *badger.Sequence
	dir string
}

// OpenKV opens or creates a Badger store in dir.
func OpenKV(dir string) (*KVStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return openKV(badger.DefaultOptions(dir).WithLogger(nil), dir)
}

// OpenKVInMemory opens a Badger store that lives only in memory.
func OpenKVInMemory() (*KVStore, error) {
	return openKV(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil), "")
}

func openKV(opts badger.Options, dir string) (*KVStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	seq, err := db.GetSequence([]byte(seqKey), 1000)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sequence: %w", err)
	}
	return &KVStore{db: db, seq: seq, dir: dir}, nil
}

// Close releases the sequence lease and closes the database.
func (k *KVStore) Close() error {
	var errs []error
	if k.seq != nil {
		errs = append(errs, k.seq.Release())
	}
	if k.db != nil {
		errs = append(errs, k.db.Close())
	}
	return errors.Join(errs...)
}

// CreateSubject stores a new subject profile.
func (k *KVStore) CreateSubject(s *models.Subject) error {
	key := []byte(subjectPrefix + s.ID.String())
	err := k.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("subject %s already exists", s.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return setJSON(txn, key, normalizeSubject(s))
	})
	if err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// UpdateSubject overwrites the profile of an existing subject, keeping the
// stored running state.
func (k *KVStore) UpdateSubject(s *models.Subject) error {
	key := []byte(subjectPrefix + s.ID.String())
	err := k.db.Update(func(txn *badger.Txn) error {
		var existing models.Subject
		if err := getJSON(txn, key, &existing); err != nil {
			return err
		}
		updated := normalizeSubject(s)
		updated.CreatedAt = existing.CreatedAt
		updated.Apply(existing.State())
		return setJSON(txn, key, updated)
	})
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return nil
}

// GetSubject retrieves a subject by ID or ID prefix.
func (k *KVStore) GetSubject(idOrPrefix string) (*models.Subject, error) {
	var s models.Subject
	err := k.db.View(func(txn *badger.Txn) error {
		key, err := resolveSubjectKey(txn, idOrPrefix)
		if err != nil {
			return err
		}
		return getJSON(txn, key, &s)
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindSubjectByName returns the oldest subject registered under a first/last name.
func (k *KVStore) FindSubjectByName(firstName, lastName string) (*models.Subject, error) {
	all, err := k.allSubjects()
	if err != nil {
		return nil, err
	}
	var found *models.Subject
	for _, s := range all {
		if s.FirstName != firstName || s.LastName != lastName {
			continue
		}
		if found == nil || s.CreatedAt.Before(found.CreatedAt) {
			found = s
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// ListSubjects returns subjects ordered by name, optionally within one group.
func (k *KVStore) ListSubjects(groupID *string) ([]*models.Subject, error) {
	all, err := k.allSubjects()
	if err != nil {
		return nil, err
	}
	var out []*models.Subject
	for _, s := range all {
		if groupID == nil || s.GroupID == *groupID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out, nil
}

// DeleteSubject removes a subject together with its samples, observations and activities.
func (k *KVStore) DeleteSubject(idOrPrefix string) error {
	var keys [][]byte
	err := k.db.View(func(txn *badger.Txn) error {
		key, err := resolveSubjectKey(txn, idOrPrefix)
		if err != nil {
			return err
		}
		id := strings.TrimPrefix(string(key), subjectPrefix)
		keys = append(keys, key)
		keys = append(keys, collectKeys(txn, []byte(hrPrefix+id+":"))...)
		keys = append(keys, collectKeys(txn, []byte(obsPrefix+id+":"))...)

		return scan(txn, []byte(activityPrefix), nil, func(key []byte, item *badger.Item) (bool, error) {
			var a models.Activity
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &a) }); err != nil {
				return false, err
			}
			if a.SubjectID.String() == id {
				keys = append(keys, key)
			}
			return true, nil
		})
	})
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}

	wb := k.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("delete subject: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}

// RecordSession appends samples and their observations and stores the new
// running state, all in one transaction.
func (k *KVStore) RecordSession(subjectID uuid.UUID, samples []*models.HeartRateSample, obs []*models.Observation, state models.FatigueState) error {
	err := k.db.Update(func(txn *badger.Txn) error {
		if err := applyState(txn, subjectID, state); err != nil {
			return err
		}
		for _, s := range samples {
			key, err := k.seriesKey(hrPrefix, s.SubjectID, s.RecordedAt)
			if err != nil {
				return err
			}
			rec := *s
			rec.RecordedAt = truncate(s.RecordedAt)
			if err := setJSON(txn, key, &rec); err != nil {
				return err
			}
		}
		for _, o := range obs {
			if err := k.putObservation(txn, o); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	return nil
}

// RecordObservation appends a single observation and stores the new running state.
func (k *KVStore) RecordObservation(o *models.Observation, state models.FatigueState) error {
	err := k.db.Update(func(txn *badger.Txn) error {
		if err := applyState(txn, o.SubjectID, state); err != nil {
			return err
		}
		return k.putObservation(txn, o)
	})
	if err != nil {
		return fmt.Errorf("record observation: %w", err)
	}
	return nil
}

// ListHeartRates returns a subject's samples in time order.
// With a limit, the most recent samples are returned, still oldest first.
func (k *KVStore) ListHeartRates(subjectID uuid.UUID, since *time.Time, limit int) ([]*models.HeartRateSample, error) {
	prefix := []byte(hrPrefix + subjectID.String() + ":")
	var out []*models.HeartRateSample

	err := k.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		var lower []byte
		if since != nil {
			lower = timeKey(prefix, *since)
		}
		seekEnd := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seekEnd); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if lower != nil && bytes.Compare(item.Key(), lower) < 0 {
				break
			}
			var s models.HeartRateSample
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &s) }); err != nil {
				return err
			}
			out = append(out, &s)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list heart rates: %w", err)
	}

	reverse(out)
	return out, nil
}

// ListObservations returns a subject's observations in [since, until), oldest first.
func (k *KVStore) ListObservations(subjectID uuid.UUID, since, until *time.Time) ([]*models.Observation, error) {
	prefix := []byte(obsPrefix + subjectID.String() + ":")
	start := prefix
	if since != nil {
		start = timeKey(prefix, *since)
	}
	var end []byte
	if until != nil {
		end = timeKey(prefix, *until)
	}

	var out []*models.Observation
	err := k.db.View(func(txn *badger.Txn) error {
		return scan(txn, prefix, start, func(key []byte, item *badger.Item) (bool, error) {
			if end != nil && bytes.Compare(key, end) >= 0 {
				return false, nil
			}
			var o models.Observation
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &o) }); err != nil {
				return false, err
			}
			out = append(out, &o)
			return true, nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	return out, nil
}

// AddActivity appends an activity entry.
func (k *KVStore) AddActivity(a *models.Activity) error {
	err := k.db.Update(func(txn *badger.Txn) error {
		n, err := k.seq.Next()
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%s%020d:%020d", activityPrefix, a.RecordedAt.Unix(), n)
		rec := *a
		rec.RecordedAt = truncate(a.RecordedAt)
		return setJSON(txn, []byte(key), &rec)
	})
	if err != nil {
		return fmt.Errorf("add activity: %w", err)
	}
	return nil
}

// ListActivities returns activities, most recent first, optionally for one subject.
func (k *KVStore) ListActivities(subjectID *uuid.UUID, limit int) ([]*models.Activity, error) {
	prefix := []byte(activityPrefix)
	var out []*models.Activity

	err := k.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(append(append([]byte{}, prefix...), 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			var a models.Activity
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &a) }); err != nil {
				return err
			}
			if subjectID != nil && a.SubjectID != *subjectID {
				continue
			}
			out = append(out, &a)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return out, nil
}

func (k *KVStore) allSubjects() ([]*models.Subject, error) {
	var out []*models.Subject
	err := k.db.View(func(txn *badger.Txn) error {
		prefix := []byte(subjectPrefix)
		return scan(txn, prefix, prefix, func(_ []byte, item *badger.Item) (bool, error) {
			var s models.Subject
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &s) }); err != nil {
				return false, err
			}
			out = append(out, &s)
			return true, nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return out, nil
}

func (k *KVStore) putObservation(txn *badger.Txn, o *models.Observation) error {
	key, err := k.seriesKey(obsPrefix, o.SubjectID, o.RecordedAt)
	if err != nil {
		return err
	}
	rec := *o
	rec.RecordedAt = truncate(o.RecordedAt)
	return setJSON(txn, key, &rec)
}

func (k *KVStore) seriesKey(prefix string, subjectID uuid.UUID, at time.Time) ([]byte, error) {
	n, err := k.seq.Next()
	if err != nil {
		return nil, fmt.Errorf("next sequence: %w", err)
	}
	return []byte(fmt.Sprintf("%s%s:%020d:%020d", prefix, subjectID, at.Unix(), n)), nil
}

// applyState updates the subject's running state, failing when it does not exist.
func applyState(txn *badger.Txn, subjectID uuid.UUID, state models.FatigueState) error {
	key := []byte(subjectPrefix + subjectID.String())
	var s models.Subject
	if err := getJSON(txn, key, &s); err != nil {
		return err
	}
	state.UpdatedAt = truncate(state.UpdatedAt)
	s.Apply(state)
	return setJSON(txn, key, &s)
}

func resolveSubjectKey(txn *badger.Txn, idOrPrefix string) ([]byte, error) {
	if isFullUUID(idOrPrefix) {
		key := []byte(subjectPrefix + idOrPrefix)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
		} else if err != nil {
			return nil, err
		}
		return key, nil
	}

	prefix := []byte(subjectPrefix + idOrPrefix)
	matches := collectKeys(txn, prefix)
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w %s: matches %d subjects", ErrAmbiguousPrefix, idOrPrefix, len(matches))
	}
}

// scan walks keys under prefix starting at start, until fn returns false.
func scan(txn *badger.Txn, prefix, start []byte, fn func(key []byte, item *badger.Item) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	if start == nil {
		start = prefix
	}
	for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		more, err := fn(item.KeyCopy(nil), item)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

func collectKeys(txn *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

func timeKey(prefix []byte, t time.Time) []byte {
	return []byte(fmt.Sprintf("%s%020d:", prefix, t.Unix()))
}

func getJSON(txn *badger.Txn, key []byte, v interface{}) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, strings.TrimPrefix(string(key), subjectPrefix))
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

// normalizeSubject stores timestamps at the same precision as the SQLite backend.
func normalizeSubject(s *models.Subject) *models.Subject {
	c := *s
	c.CreatedAt = truncate(s.CreatedAt)
	if s.LastUpdate != nil {
		t := truncate(*s.LastUpdate)
		c.LastUpdate = &t
	}
	return &c
}

func truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
