// ABOUTME: Request and response bodies for the HTTP API.
// ABOUTME: Field names follow the mobile client's JSON contract.
package api

import (
	"github.com/harperreed/fatigue/internal/hourly"
	"github.com/harperreed/fatigue/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

// LoginRequest is the body of POST /api/v1/user/login/.
type LoginRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LoginResponse reports whether a subject exists under the name.
type LoginResponse struct {
	Created bool   `json:"created"`
	UserID  string `json:"user_id,omitempty"`
	GroupID string `json:"group_id,omitempty"`
}

// RegisterRequest is the body of POST /api/v1/user/new/. Omitted profile
// fields keep their stored values, or the configured defaults for new subjects.
type RegisterRequest struct {
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	GroupID   string   `json:"group_id"`
	Age       *int     `json:"age"`
	RestHR    *float64 `json:"rest_heart_rate"`
	HRRCP     *float64 `json:"hrr_cp"`
	WTotal    *float64 `json:"awc_tot"`
	K         *float64 `json:"k_value"`
	R         *float64 `json:"r_value"`
}

// RegisterResponse is returned for both new and updated subjects.
type RegisterResponse struct {
	UserID  string  `json:"user_id"`
	MaxHR   float64 `json:"max_heart_rate"`
	Created bool    `json:"created"`
}

// SampleRequest is one heart-rate reading. Timestamp is unix seconds; nil means now.
type SampleRequest struct {
	HeartRate *float64 `json:"heart_rate"`
	Timestamp *int64   `json:"timestamp"`
}

// HeartRateRequest carries either a single reading inline or a batch in Samples.
type HeartRateRequest struct {
	UserID     string          `json:"user_id"`
	HeartRate  *float64        `json:"heart_rate"`
	Timestamp  *int64          `json:"timestamp"`
	Samples    []SampleRequest `json:"samples"`
	NewSession bool            `json:"new_session"`
}

// HeartRateResponse holds one fatigue level per uploaded sample.
type HeartRateResponse struct {
	UserID        string    `json:"user_id"`
	FatigueLevels []float64 `json:"fatigue_levels"`
	WExp          float64   `json:"w_exp"`
}

// FatigueRequest is the body of POST /api/v1/upload/fatigue_level/.
type FatigueRequest struct {
	UserID       string   `json:"user_id"`
	FatigueLevel *float64 `json:"fatigue_level"`
	Timestamp    *int64   `json:"timestamp"`
}

// ActivityRequest logs a subject opening or closing a peer's view.
type ActivityRequest struct {
	UserID    string `json:"user_id"`
	PeerID    string `json:"peer_id"`
	Timestamp *int64 `json:"timestamp"`
	Open      bool   `json:"if_open"`
}

// CreatedResponse returns the ID of a stored record.
type CreatedResponse struct {
	ID string `json:"id"`
}

// GroupResponse lists the members of a group.
type GroupResponse struct {
	GroupID string         `json:"group_id"`
	Peers   []service.Peer `json:"peers"`
}

// PeerResponse is the hourly view of one subject's current local day.
type PeerResponse struct {
	UserID       string          `json:"user_id"`
	FirstName    string          `json:"first_name"`
	Date         string          `json:"date"`
	Timezone     string          `json:"timezone"`
	Observations []hourly.Bucket `json:"observations"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}
