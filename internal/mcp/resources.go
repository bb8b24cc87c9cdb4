// ABOUTME: MCP resource implementations for the fatigue tracker.
// ABOUTME: Provides fatigue://subjects and fatigue://today resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	subjectsURI = "fatigue://subjects"
	todayURI    = "fatigue://today"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         subjectsURI,
		Name:        "Registered Subjects",
		Description: "All subjects with their profile constants and latest fatigue level",
		MIMEType:    "application/json",
	}, s.handleSubjectsResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         todayURI,
		Name:        "Today's Fatigue",
		Description: "Hourly fatigue summary for every subject for the current local day",
		MIMEType:    "application/json",
	}, s.handleTodayResource)
}

// Resource handlers

func (s *Server) handleSubjectsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	subjects, err := s.svc.Subjects(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}

	result := map[string]interface{}{
		"subjects": subjects,
		"count":    len(subjects),
	}
	return jsonResource(subjectsURI, result)
}

type todayEntry struct {
	ID        string         `json:"user_id"`
	Name      string         `json:"name"`
	GroupID   string         `json:"group_id"`
	Latest    float64        `json:"fatigue_level"`
	HoursSeen int            `json:"hours_with_data"`
	Hours     []bucketOutput `json:"observations"`
}

func (s *Server) handleTodayResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	subjects, err := s.svc.Subjects(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}

	now := s.svc.Now().In(s.svc.Location())
	entries := make([]todayEntry, 0, len(subjects))
	for _, subj := range subjects {
		sum, err := s.svc.PeerSummary(ctx, subj.ID.String())
		if err != nil {
			return nil, fmt.Errorf("failed to summarize %s: %w", subj.FullName(), err)
		}
		seen := 0
		for _, b := range sum.Day {
			if !b.Empty() {
				seen++
			}
		}
		entries = append(entries, todayEntry{
			ID:        subj.ID.String(),
			Name:      subj.FullName(),
			GroupID:   subj.GroupID,
			Latest:    subj.FatigueLevel,
			HoursSeen: seen,
			Hours:     toBuckets(sum.Day),
		})
	}

	result := map[string]interface{}{
		"date":     now.Format("2006-01-02"),
		"timezone": now.Location().String(),
		"window":   s.svc.Window().String(),
		"subjects": entries,
	}
	return jsonResource(todayURI, result)
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
