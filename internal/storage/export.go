// ABOUTME: Export and import of fatigue data shared by both storage backends.
// ABOUTME: Supports JSON (round-trippable), YAML, and Markdown export formats.
package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/fatigue/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportData represents the full export format for fatigue data.
type ExportData struct {
	Version      string                    `json:"version" yaml:"version"`
	ExportedAt   time.Time                 `json:"exported_at" yaml:"exported_at"`
	Tool         string                    `json:"tool" yaml:"tool"`
	Subjects     []*models.Subject         `json:"subjects" yaml:"subjects"`
	HeartRates   []*models.HeartRateSample `json:"heart_rates" yaml:"heart_rates"`
	Observations []*models.Observation     `json:"observations" yaml:"observations"`
	Activities   []*models.Activity        `json:"activities" yaml:"activities"`
}

// GetAllData retrieves all data for export.
func (d *DB) GetAllData() (*ExportData, error) {
	return collectAll(d)
}

// ImportData imports data from an export.
func (d *DB) ImportData(data *ExportData) error {
	return importAll(d, data)
}

// GetAllData retrieves all data for export.
func (k *KVStore) GetAllData() (*ExportData, error) {
	return collectAll(k)
}

// ImportData imports data from an export.
func (k *KVStore) ImportData(data *ExportData) error {
	return importAll(k, data)
}

func collectAll(r Repository) (*ExportData, error) {
	subjects, err := r.ListSubjects(nil)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}

	data := &ExportData{
		Version:      "1.0",
		ExportedAt:   time.Now(),
		Tool:         "fatigue",
		Subjects:     subjects,
		HeartRates:   []*models.HeartRateSample{},
		Observations: []*models.Observation{},
	}

	for _, s := range subjects {
		hr, err := r.ListHeartRates(s.ID, nil, 0)
		if err != nil {
			return nil, fmt.Errorf("list heart rates for %s: %w", s.ID, err)
		}
		data.HeartRates = append(data.HeartRates, hr...)

		obs, err := r.ListObservations(s.ID, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("list observations for %s: %w", s.ID, err)
		}
		data.Observations = append(data.Observations, obs...)
	}

	activities, err := r.ListActivities(nil, 0)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	// Oldest first so a re-import keeps the original order.
	reverse(activities)
	data.Activities = activities
	if data.Activities == nil {
		data.Activities = []*models.Activity{}
	}

	return data, nil
}

func importAll(r Repository, data *ExportData) error {
	samples := make(map[uuid.UUID][]*models.HeartRateSample)
	for _, s := range data.HeartRates {
		samples[s.SubjectID] = append(samples[s.SubjectID], s)
	}
	obs := make(map[uuid.UUID][]*models.Observation)
	for _, o := range data.Observations {
		obs[o.SubjectID] = append(obs[o.SubjectID], o)
	}

	for _, s := range data.Subjects {
		if err := r.CreateSubject(s); err != nil {
			return fmt.Errorf("import subject: %w", err)
		}
		if len(samples[s.ID]) == 0 && len(obs[s.ID]) == 0 {
			continue
		}
		if err := r.RecordSession(s.ID, samples[s.ID], obs[s.ID], s.State()); err != nil {
			return fmt.Errorf("import series for %s: %w", s.ID, err)
		}
	}

	for _, a := range data.Activities {
		if err := r.AddActivity(a); err != nil {
			return fmt.Errorf("import activity: %w", err)
		}
	}
	return nil
}

// ExportJSON exports all data as JSON.
func ExportJSON(r Repository) ([]byte, error) {
	data, err := r.GetAllData()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ImportJSON imports data from JSON bytes.
func ImportJSON(r Repository, raw []byte) error {
	var data ExportData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("unmarshal JSON: %w", err)
	}
	return r.ImportData(&data)
}

// ExportYAML exports all data as YAML, with series nested under each subject.
func ExportYAML(r Repository) ([]byte, error) {
	data, err := r.GetAllData()
	if err != nil {
		return nil, err
	}

	out := struct {
		Version    string        `yaml:"version"`
		ExportedAt string        `yaml:"exported_at"`
		Tool       string        `yaml:"tool"`
		Subjects   []yamlSubject `yaml:"subjects"`
	}{
		Version:    data.Version,
		ExportedAt: data.ExportedAt.Format(time.RFC3339),
		Tool:       data.Tool,
		Subjects:   make([]yamlSubject, 0, len(data.Subjects)),
	}

	index := make(map[uuid.UUID]int, len(data.Subjects))
	for i, s := range data.Subjects {
		index[s.ID] = i
		ys := yamlSubject{
			ID:      s.ID.String()[:8],
			Name:    s.FullName(),
			Group:   s.GroupID,
			Age:     s.Age,
			RestHR:  s.RestHR,
			MaxHR:   s.MaxHR,
			HRRCP:   s.HRRCP,
			WTotal:  s.WTotal,
			WExp:    s.WExp,
			Fatigue: s.FatigueLevel,
		}
		if s.LastUpdate != nil {
			ys.LastUpdate = s.LastUpdate.Format(time.RFC3339)
		}
		out.Subjects = append(out.Subjects, ys)
	}

	for _, hr := range data.HeartRates {
		i, ok := index[hr.SubjectID]
		if !ok {
			continue
		}
		out.Subjects[i].HeartRates = append(out.Subjects[i].HeartRates, yamlPoint{
			At:    hr.RecordedAt.Format(time.RFC3339),
			Value: hr.HeartRate,
		})
	}
	for _, o := range data.Observations {
		i, ok := index[o.SubjectID]
		if !ok {
			continue
		}
		out.Subjects[i].Observations = append(out.Subjects[i].Observations, yamlPoint{
			At:     o.RecordedAt.Format(time.RFC3339),
			Value:  o.Level,
			Source: string(o.Source),
		})
	}

	return yaml.Marshal(out)
}

type yamlSubject struct {
	ID           string      `yaml:"id"`
	Name         string      `yaml:"name"`
	Group        string      `yaml:"group"`
	Age          int         `yaml:"age"`
	RestHR       float64     `yaml:"rest_hr"`
	MaxHR        float64     `yaml:"max_hr"`
	HRRCP        float64     `yaml:"hrr_cp"`
	WTotal       float64     `yaml:"w_total"`
	WExp         float64     `yaml:"w_exp"`
	Fatigue      float64     `yaml:"fatigue_level"`
	LastUpdate   string      `yaml:"last_update,omitempty"`
	HeartRates   []yamlPoint `yaml:"heart_rates,omitempty"`
	Observations []yamlPoint `yaml:"observations,omitempty"`
}

type yamlPoint struct {
	At     string  `yaml:"at"`
	Value  float64 `yaml:"value"`
	Source string  `yaml:"source,omitempty"`
}

// ExportMarkdown exports subjects and their observations as Markdown tables.
func ExportMarkdown(r Repository, since *time.Time) (string, error) {
	subjects, err := r.ListSubjects(nil)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	now := time.Now()

	sb.WriteString(fmt.Sprintf("# Fatigue Export - %s\n\n", now.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format(time.RFC3339)))

	sb.WriteString("## Subjects\n\n")
	sb.WriteString("| Name | Group | Max HR | Fatigue | Last Update |\n")
	sb.WriteString("|------|-------|--------|---------|-------------|\n")
	for _, s := range subjects {
		level, last := "-", "-"
		if s.HasFatigue() {
			level = fmt.Sprintf("%.3f", s.FatigueLevel)
			last = s.LastUpdate.Format("2006-01-02 15:04")
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %.1f | %s | %s |\n",
			s.FullName(), s.GroupID, s.MaxHR, level, last))
	}
	sb.WriteString("\n")

	for _, s := range subjects {
		obs, err := r.ListObservations(s.ID, since, nil)
		if err != nil {
			return "", err
		}
		if len(obs) == 0 {
			continue
		}

		sb.WriteString(fmt.Sprintf("## %s\n\n", s.FullName()))
		sb.WriteString("| Date | Fatigue | Source |\n")
		sb.WriteString("|------|---------|--------|\n")
		for _, o := range obs {
			sb.WriteString(fmt.Sprintf("| %s | %.3f | %s |\n",
				o.RecordedAt.Format("2006-01-02 15:04"), o.Level, o.Source))
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}
