package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/HammerMeetNail/plantcare/internal/flow"
	"github.com/HammerMeetNail/plantcare/internal/logging"
	"github.com/HammerMeetNail/plantcare/internal/models"
	"github.com/HammerMeetNail/plantcare/internal/progress"
	"github.com/HammerMeetNail/plantcare/internal/render"
	"github.com/HammerMeetNail/plantcare/internal/services/guide"
)

// GuideService is the synchronous gateway to the guide backend.
type GuideService interface {
	RequestGuide(ctx context.Context, input models.FormInput) (*models.Guide, error)
	Health(ctx context.Context) guide.Status
}

type GuideHandler struct {
	flow     GuideFlow
	service  GuideService
	pages    *PageHandler
	progress progress.Config
}

func NewGuideHandler(guides GuideFlow, service GuideService, pages *PageHandler, cfg progress.Config) *GuideHandler {
	return &GuideHandler{flow: guides, service: service, pages: pages, progress: cfg}
}

const maxFormBytes = 16 * 1024

func parseFormInput(r *http.Request) models.FormInput {
	var input models.FormInput
	for _, field := range models.FormFields {
		input.Set(field, r.PostForm.Get(field))
	}
	return input
}

// Submit handles the HTML form post. The request to the backend runs in the
// background; the browser is redirected to the page, which shows progress.
func (h *GuideHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "Session required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form body")
		return
	}
	input := parseFormInput(r)

	_, err := h.flow.Submit(r.Context(), sessionID, input)
	switch {
	case err == nil, errors.Is(err, flow.ErrRequestInFlight), errors.Is(err, flow.ErrTransition):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, flow.ErrIncompleteForm):
		snap, snapErr := h.flow.Snapshot(r.Context(), sessionID)
		if snapErr != nil {
			snap = flow.Snapshot{State: flow.Idle()}
		}
		h.pages.renderGuidePage(w, r, http.StatusUnprocessableEntity, snap, render.Form(input, true))
	default:
		logging.FromContext(r.Context()).Error("Failed to submit guide request", map[string]interface{}{
			"error": err.Error(),
		})
		h.pages.InternalError(w, r)
	}
}

// Reset backs both "Try Again" and "Create New Guide".
func (h *GuideHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "Session required")
		return
	}

	if err := h.flow.Reset(r.Context(), sessionID); err != nil {
		logging.FromContext(r.Context()).Error("Failed to reset session", map[string]interface{}{
			"error": err.Error(),
		})
		h.pages.InternalError(w, r)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type StatusResponse struct {
	State    flow.Phase `json:"state"`
	Progress int        `json:"progress"`
	Error    string     `json:"error,omitempty"`
}

func statusOf(snap flow.Snapshot) StatusResponse {
	return StatusResponse{
		State:    snap.State.Phase,
		Progress: snap.Progress,
		Error:    snap.State.Message,
	}
}

// Status returns the session snapshot for polling clients.
func (h *GuideHandler) Status(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "Session required")
		return
	}

	snap, err := h.flow.Snapshot(r.Context(), sessionID)
	if err != nil {
		logging.FromContext(r.Context()).Error("Failed to load session state", map[string]interface{}{
			"error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, statusOf(snap))
}

type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s eventStream) send(event, data string) {
	_, _ = fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data)
	s.flusher.Flush()
}

func (s eventStream) progress(v int) {
	s.send("progress", strconv.Itoa(v))
}

// Progress streams simulated progress as server-sent events until the
// session leaves the loading state, then sends a final "done" event.
func (h *GuideHandler) Progress(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "Session required")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	ctx := r.Context()
	snap, err := h.flow.Snapshot(ctx, sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	stream := eventStream{w: w, flusher: flusher}

	if !snap.State.Loading() {
		stream.progress(snap.Progress)
		stream.send("done", string(snap.State.Phase))
		return
	}

	var run *progress.Run
	if !snap.State.Answered() {
		run = progress.NewSimulator(h.progress).Resume(ctx, time.Since(snap.State.StartedAt))
		defer run.Stop()
	} else {
		stream.progress(progress.Complete)
	}

	check := time.NewTicker(h.checkInterval())
	defer check.Stop()

	var runC <-chan int
	if run != nil {
		runC = run.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case v, open := <-runC:
			if !open {
				runC = nil
				continue
			}
			stream.progress(v)

		case <-check.C:
			snap, err = h.flow.Snapshot(ctx, sessionID)
			if err != nil {
				stream.send("done", "error")
				return
			}
			if snap.State.Answered() && run != nil {
				run.Complete()
				for v := range run.C {
					stream.progress(v)
				}
				run, runC = nil, nil
			}
			if !snap.State.Loading() {
				if run != nil {
					run.Stop()
				}
				stream.send("done", string(snap.State.Phase))
				return
			}
		}
	}
}

func (h *GuideHandler) checkInterval() time.Duration {
	if h.progress.Hold > 0 && h.progress.Hold < h.progress.Interval {
		return h.progress.Hold / 2
	}
	if h.progress.Interval > 0 {
		return h.progress.Interval / 2
	}
	return 100 * time.Millisecond
}

const maxJSONBytes = 8 * 1024

// GuideRequest is the JSON API body. sunlight_hours may be sent as a
// number or as the string a form would carry.
type GuideRequest struct {
	PlantName         string          `json:"plant_name"`
	PlantType         string          `json:"plant_type"`
	Climate           string          `json:"climate"`
	SunlightHours     json.RawMessage `json:"sunlight_hours"`
	SoilType          string          `json:"soil_type"`
	WateringFrequency string          `json:"watering_frequency"`
	ExperienceLevel   string          `json:"experience_level"`
}

var errBadSunlightHours = errors.New("sunlight_hours must be a number or string")

// FormInput converts the request into form values. Numbers keep their
// JSON text; coercion to whole hours happens when the backend request is built.
func (g GuideRequest) FormInput() (models.FormInput, error) {
	input := models.FormInput{
		PlantName:         g.PlantName,
		PlantType:         g.PlantType,
		Climate:           g.Climate,
		SoilType:          g.SoilType,
		WateringFrequency: g.WateringFrequency,
		ExperienceLevel:   g.ExperienceLevel,
	}

	raw := bytes.TrimSpace(g.SunlightHours)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
	case raw[0] == '"':
		if err := json.Unmarshal(raw, &input.SunlightHours); err != nil {
			return input, errBadSunlightHours
		}
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return input, errBadSunlightHours
		}
		input.SunlightHours = n.String()
	}
	return input, nil
}

// API is the synchronous JSON gateway: form values in, display model out.
func (h *GuideHandler) API(w http.ResponseWriter, r *http.Request) {
	var body GuideRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	input, err := body.FormInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if missing := input.MissingFields(); len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "Missing required fields: "+strings.Join(missing, ", "))
		return
	}

	ctx := r.Context()
	if sessionID := GetSessionIDFromContext(ctx); sessionID != "" {
		ctx = guide.WithSessionID(ctx, sessionID)
	}

	g, err := h.service.RequestGuide(ctx, input)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}

		status := http.StatusInternalServerError
		var apiErr *guide.APIError
		var shapeErr *guide.ShapeError
		switch {
		case errors.Is(err, guide.ErrInvalidInput):
			status = http.StatusBadRequest
		case errors.As(err, &apiErr), errors.As(err, &shapeErr):
			status = http.StatusBadGateway
		case errors.Is(err, guide.ErrBackendUnreachable):
			status = http.StatusServiceUnavailable
		}

		writeError(w, status, guide.UserMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, g)
}

type BackendStatusResponse struct {
	Status guide.Status `json:"status"`
}

// BackendStatus reports whether the guide backend answers its health check.
func (h *GuideHandler) BackendStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, BackendStatusResponse{Status: h.service.Health(r.Context())})
}
