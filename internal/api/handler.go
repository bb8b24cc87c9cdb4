// ABOUTME: HTTP handlers for the fatigue API.
// ABOUTME: Decodes JSON requests, calls the service, and maps errors to status codes.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harperreed/fatigue/internal/hourly"
	"github.com/harperreed/fatigue/internal/service"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies; a day of per-second samples fits well under it.
const maxBodyBytes = 4 << 20

// Handler serves every /api/v1/* route plus /healthz.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
	mux    *http.ServeMux
}

// New creates a Handler wired to svc and registers all routes.
func New(svc *service.Service, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{svc: svc, logger: logger.Named("api"), mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /api/v1/user/login/{$}", h.login)
	h.mux.HandleFunc("POST /api/v1/user/new/{$}", h.register)
	h.mux.HandleFunc("POST /api/v1/upload/heart_rate/{$}", h.uploadHeartRate)
	h.mux.HandleFunc("POST /api/v1/upload/fatigue_level/{$}", h.uploadFatigue)
	h.mux.HandleFunc("POST /api/v1/upload/activity/{$}", h.uploadActivity)
	h.mux.HandleFunc("GET /api/v1/peer/group/{group_id}/{$}", h.group)
	h.mux.HandleFunc("GET /api/v1/peer/{user_id}/{$}", h.peer)
	h.mux.HandleFunc("GET /healthz", h.health)

	return withLogging(h.mux, h.logger)
}

// --- route handlers ---------------------------------------------------------

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	subj, err := h.svc.Login(r.Context(), req.FirstName, req.LastName)
	if errors.Is(err, service.ErrSubjectNotFound) {
		jsonResp(w, http.StatusOK, LoginResponse{Created: false})
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonResp(w, http.StatusOK, LoginResponse{Created: true, UserID: subj.ID.String(), GroupID: subj.GroupID})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	subj, created, err := h.svc.Register(r.Context(), service.Registration{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		GroupID:   req.GroupID,
		Age:       req.Age,
		RestHR:    req.RestHR,
		HRRCP:     req.HRRCP,
		WTotal:    req.WTotal,
		K:         req.K,
		R:         req.R,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	jsonResp(w, code, RegisterResponse{UserID: subj.ID.String(), MaxHR: subj.MaxHR, Created: created})
}

func (h *Handler) uploadHeartRate(w http.ResponseWriter, r *http.Request) {
	var req HeartRateRequest
	if !h.decode(w, r, &req) {
		return
	}

	reqs := req.Samples
	if req.HeartRate != nil {
		if len(reqs) > 0 {
			jsonErr(w, http.StatusBadRequest, "send either heart_rate or samples, not both")
			return
		}
		reqs = []SampleRequest{{HeartRate: req.HeartRate, Timestamp: req.Timestamp}}
	}

	samples := make([]service.Sample, len(reqs))
	for i, sr := range reqs {
		if sr.HeartRate == nil {
			jsonErr(w, http.StatusBadRequest, fmt.Sprintf("sample %d: heart_rate is required", i))
			return
		}
		samples[i] = service.Sample{HeartRate: *sr.HeartRate, At: h.timestamp(sr.Timestamp)}
	}

	res, err := h.svc.IngestHeartRates(r.Context(), req.UserID, samples, req.NewSession)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonResp(w, http.StatusCreated, HeartRateResponse{
		UserID:        res.SubjectID.String(),
		FatigueLevels: res.Levels,
		WExp:          res.WExp,
	})
}

func (h *Handler) uploadFatigue(w http.ResponseWriter, r *http.Request) {
	var req FatigueRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.FatigueLevel == nil {
		jsonErr(w, http.StatusBadRequest, "fatigue_level is required")
		return
	}

	obs, err := h.svc.RecordFatigue(r.Context(), req.UserID, *req.FatigueLevel, h.timestamp(req.Timestamp))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonResp(w, http.StatusCreated, CreatedResponse{ID: obs.ID.String()})
}

func (h *Handler) uploadActivity(w http.ResponseWriter, r *http.Request) {
	var req ActivityRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := h.svc.LogActivity(r.Context(), req.UserID, req.PeerID, h.timestamp(req.Timestamp), req.Open)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonResp(w, http.StatusCreated, CreatedResponse{ID: a.ID.String()})
}

func (h *Handler) group(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("group_id")
	peers, err := h.svc.Group(r.Context(), groupID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonResp(w, http.StatusOK, GroupResponse{GroupID: groupID, Peers: peers})
}

func (h *Handler) peer(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.PeerSummary(r.Context(), r.PathValue("user_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	buckets := make([]hourly.Bucket, len(sum.Day))
	copy(buckets, sum.Day[:])
	jsonResp(w, http.StatusOK, PeerResponse{
		UserID:       sum.Subject.ID.String(),
		FirstName:    sum.Subject.FirstName,
		Date:         sum.Now.Format("2006-01-02"),
		Timezone:     sum.Now.Location().String(),
		Observations: buckets,
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// --- helpers ----------------------------------------------------------------

// decode reads a JSON body into v, writing a 400 and returning false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		jsonErr(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

// timestamp converts optional unix seconds; nil means now.
func (h *Handler) timestamp(secs *int64) time.Time {
	if secs == nil {
		return h.svc.Now()
	}
	return time.Unix(*secs, 0).UTC()
}

// fail maps service errors onto status codes. Unexpected errors are logged
// and hidden behind a generic message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		jsonErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSubjectNotFound):
		jsonErr(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		jsonErr(w, http.StatusInternalServerError, "internal server error")
	}
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
