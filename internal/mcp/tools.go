// ABOUTME: MCP tool implementations for the fatigue tracker.
// ABOUTME: Registration, heart-rate and fatigue uploads, and peer views.
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/fatigue/internal/hourly"
	"github.com/harperreed/fatigue/internal/models"
	"github.com/harperreed/fatigue/internal/service"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "register_subject",
		Description: "Register an athlete, or update the profile already registered under the same name",
	}, s.handleRegisterSubject)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "record_heart_rates",
		Description: "Upload heart-rate samples and get the resulting fatigue levels",
	}, s.handleRecordHeartRates)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "record_fatigue",
		Description: "Record a directly reported fatigue level",
	}, s.handleRecordFatigue)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "peer_summary",
		Description: "Hourly fatigue range and average for a subject's current local day",
	}, s.handlePeerSummary)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_group",
		Description: "List the members of a group with their latest fatigue level",
	}, s.handleListGroup)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_observations",
		Description: "List stored fatigue observations for a subject",
	}, s.handleListObservations)
}

// Tool input/output types

type registerInput struct {
	FirstName string   `json:"first_name" jsonschema:"first name"`
	LastName  string   `json:"last_name,omitempty" jsonschema:"last name"`
	GroupID   string   `json:"group_id,omitempty" jsonschema:"group the athlete belongs to; required for new subjects"`
	Age       *int     `json:"age,omitempty" jsonschema:"age in years; max heart rate is 200 - 0.7 * age"`
	RestHR    *float64 `json:"rest_heart_rate,omitempty" jsonschema:"resting heart rate in bpm"`
	HRRCP     *float64 `json:"hrr_cp,omitempty" jsonschema:"critical heart-rate reserve threshold in percent"`
	WTotal    *float64 `json:"w_total,omitempty" jsonschema:"work capacity used to normalize fatigue"`
	K         *float64 `json:"k,omitempty" jsonschema:"depletion rate"`
	R         *float64 `json:"r,omitempty" jsonschema:"recovery rate"`
}

type subjectOutput struct {
	ID      string  `json:"user_id"`
	Name    string  `json:"name"`
	GroupID string  `json:"group_id"`
	MaxHR   float64 `json:"max_heart_rate"`
	Created bool    `json:"created"`
	Message string  `json:"message"`
}

type sampleInput struct {
	HeartRate float64 `json:"heart_rate" jsonschema:"heart rate in bpm"`
	Timestamp string  `json:"timestamp,omitempty" jsonschema:"RFC3339 time, YYYY-MM-DD HH:MM, or unix seconds; defaults to now"`
}

type heartRatesInput struct {
	UserID     string        `json:"user_id" jsonschema:"subject ID or ID prefix"`
	Samples    []sampleInput `json:"samples" jsonschema:"heart-rate samples"`
	NewSession bool          `json:"new_session,omitempty" jsonschema:"start from zero fatigue instead of the stored state"`
}

type heartRatesOutput struct {
	ID      string    `json:"user_id"`
	Levels  []float64 `json:"fatigue_levels"`
	WExp    float64   `json:"w_exp"`
	Message string    `json:"message"`
}

type fatigueInput struct {
	UserID       string  `json:"user_id" jsonschema:"subject ID or ID prefix"`
	FatigueLevel float64 `json:"fatigue_level" jsonschema:"reported fatigue level"`
	Timestamp    string  `json:"timestamp,omitempty" jsonschema:"RFC3339 time, YYYY-MM-DD HH:MM, or unix seconds; defaults to now"`
}

type simpleOutput struct {
	Message string `json:"message"`
}

type subjectIDInput struct {
	UserID string `json:"user_id" jsonschema:"subject ID or ID prefix"`
}

type summaryOutput struct {
	ID    string         `json:"user_id"`
	Name  string         `json:"name"`
	Date  string         `json:"date"`
	Hours []bucketOutput `json:"observations"`
}

// bucketOutput mirrors hourly.Bucket with schema-friendly field types.
type bucketOutput struct {
	Hour  int       `json:"hour_from_midnight"`
	Range []float64 `json:"fatigue_level_range"`
	Mean  *float64  `json:"avg_fatigue_level"`
	Count int       `json:"count"`
}

func toBuckets(day hourly.Day) []bucketOutput {
	out := make([]bucketOutput, len(day))
	for i, b := range day {
		out[i] = bucketOutput{Hour: b.Hour, Range: []float64{b.Range[0], b.Range[1]}, Mean: b.Mean, Count: b.Count}
	}
	return out
}

type groupInput struct {
	GroupID string `json:"group_id" jsonschema:"group ID"`
}

type groupOutput struct {
	GroupID string         `json:"group_id"`
	Peers   []service.Peer `json:"peers"`
}

type listObservationsInput struct {
	UserID string `json:"user_id" jsonschema:"subject ID or ID prefix"`
	Since  string `json:"since,omitempty" jsonschema:"only observations at or after this time"`
	Until  string `json:"until,omitempty" jsonschema:"only observations before this time"`
	Limit  int    `json:"limit,omitempty" jsonschema:"keep only the most recent N observations (default 100)"`
}

type observationsOutput struct {
	ID           string              `json:"user_id"`
	Observations []observationOutput `json:"observations"`
}

type observationOutput struct {
	ID         string  `json:"id"`
	Level      float64 `json:"fatigue_level"`
	RecordedAt string  `json:"recorded_at"`
	Source     string  `json:"source"`
}

func toObservations(obs []*models.Observation) []observationOutput {
	out := make([]observationOutput, len(obs))
	for i, o := range obs {
		out[i] = observationOutput{
			ID:         o.ID.String()[:8],
			Level:      o.Level,
			RecordedAt: o.RecordedAt.Format(time.RFC3339),
			Source:     string(o.Source),
		}
	}
	return out
}

// Tool handlers

func (s *Server) handleRegisterSubject(ctx context.Context, req *mcp.CallToolRequest, input registerInput) (*mcp.CallToolResult, subjectOutput, error) {
	subj, created, err := s.svc.Register(ctx, service.Registration{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		GroupID:   input.GroupID,
		Age:       input.Age,
		RestHR:    input.RestHR,
		HRRCP:     input.HRRCP,
		WTotal:    input.WTotal,
		K:         input.K,
		R:         input.R,
	})
	if err != nil {
		return nil, subjectOutput{}, fmt.Errorf("failed to register subject: %w", err)
	}

	verb := "Updated"
	if created {
		verb = "Registered"
	}
	return nil, subjectOutput{
		ID:      subj.ID.String(),
		Name:    subj.FullName(),
		GroupID: subj.GroupID,
		MaxHR:   subj.MaxHR,
		Created: created,
		Message: fmt.Sprintf("%s %s in %s (ID: %s)", verb, subj.FullName(), subj.GroupID, subj.ID.String()[:8]),
	}, nil
}

func (s *Server) handleRecordHeartRates(ctx context.Context, req *mcp.CallToolRequest, input heartRatesInput) (*mcp.CallToolResult, heartRatesOutput, error) {
	samples := make([]service.Sample, len(input.Samples))
	for i, in := range input.Samples {
		at, err := s.parseTimestamp(in.Timestamp)
		if err != nil {
			return nil, heartRatesOutput{}, fmt.Errorf("sample %d: %w", i, err)
		}
		samples[i] = service.Sample{HeartRate: in.HeartRate, At: at}
	}

	res, err := s.svc.IngestHeartRates(ctx, input.UserID, samples, input.NewSession)
	if err != nil {
		return nil, heartRatesOutput{}, fmt.Errorf("failed to record heart rates: %w", err)
	}

	return nil, heartRatesOutput{
		ID:      res.SubjectID.String(),
		Levels:  res.Levels,
		WExp:    res.WExp,
		Message: fmt.Sprintf("Recorded %d samples; latest fatigue %.4f", len(res.Levels), res.Levels[len(res.Levels)-1]),
	}, nil
}

func (s *Server) handleRecordFatigue(ctx context.Context, req *mcp.CallToolRequest, input fatigueInput) (*mcp.CallToolResult, simpleOutput, error) {
	at, err := s.parseTimestamp(input.Timestamp)
	if err != nil {
		return nil, simpleOutput{}, err
	}

	obs, err := s.svc.RecordFatigue(ctx, input.UserID, input.FatigueLevel, at)
	if err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to record fatigue: %w", err)
	}

	return nil, simpleOutput{
		Message: fmt.Sprintf("Recorded fatigue %.3f at %s", obs.Level, obs.RecordedAt.Format(time.RFC3339)),
	}, nil
}

func (s *Server) handlePeerSummary(ctx context.Context, req *mcp.CallToolRequest, input subjectIDInput) (*mcp.CallToolResult, summaryOutput, error) {
	sum, err := s.svc.PeerSummary(ctx, input.UserID)
	if err != nil {
		return nil, summaryOutput{}, fmt.Errorf("failed to summarize: %w", err)
	}

	return nil, summaryOutput{
		ID:    sum.Subject.ID.String(),
		Name:  sum.Subject.FullName(),
		Date:  sum.Now.Format("2006-01-02"),
		Hours: toBuckets(sum.Day),
	}, nil
}

func (s *Server) handleListGroup(ctx context.Context, req *mcp.CallToolRequest, input groupInput) (*mcp.CallToolResult, groupOutput, error) {
	peers, err := s.svc.Group(ctx, input.GroupID)
	if err != nil {
		return nil, groupOutput{}, fmt.Errorf("failed to list group: %w", err)
	}
	return nil, groupOutput{GroupID: input.GroupID, Peers: peers}, nil
}

func (s *Server) handleListObservations(ctx context.Context, req *mcp.CallToolRequest, input listObservationsInput) (*mcp.CallToolResult, observationsOutput, error) {
	if input.Limit <= 0 {
		input.Limit = 100
	}

	var since, until *time.Time
	if input.Since != "" {
		t, err := s.parseTimestamp(input.Since)
		if err != nil {
			return nil, observationsOutput{}, err
		}
		since = &t
	}
	if input.Until != "" {
		t, err := s.parseTimestamp(input.Until)
		if err != nil {
			return nil, observationsOutput{}, err
		}
		until = &t
	}

	obs, err := s.svc.Observations(ctx, input.UserID, since, until)
	if err != nil {
		return nil, observationsOutput{}, fmt.Errorf("failed to list observations: %w", err)
	}
	if len(obs) > input.Limit {
		obs = obs[len(obs)-input.Limit:]
	}

	subj, err := s.svc.Subject(ctx, input.UserID)
	if err != nil {
		return nil, observationsOutput{}, err
	}
	return nil, observationsOutput{ID: subj.ID.String(), Observations: toObservations(obs)}, nil
}
