// Package testutil provides a fake guide backend and request helpers for
// tests that run the server end to end.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/HammerMeetNail/plantcare/internal/models"
)

// SampleGuideResponse is a complete successful answer from the backend.
const SampleGuideResponse = `{
  "success": true,
  "plant_care_guidance": {
    "plant_overview": {
      "description": "An aromatic culinary herb.",
      "ideal_conditions": {"temperature": "18-30C", "humidity": "40-60%", "sunlight": "6-8 hours", "soil_ph": "6.0-7.0"},
      "benefits": ["Flavours sauces", "Attracts pollinators"],
      "difficulty_level": "Easy"
    },
    "growth_stages": [
      {"stage_name": "Germination", "duration": "5-10 days", "care_instructions": "Keep soil warm and moist", "key_indicators": ["First leaves"]},
      {"stage_name": "Vegetative", "duration": "3-4 weeks", "care_instructions": "Pinch the tips", "key_indicators": ["Bushy growth"]}
    ],
    "daily_care": {
      "morning_routine": ["Check soil moisture"],
      "afternoon_routine": [],
      "evening_routine": ["Turn the pot"],
      "weekly_tasks": ["Harvest top leaves"]
    },
    "common_problems": [
      {"problem": "Downy mildew", "symptoms": ["Yellow leaves"], "solution": "Improve airflow", "prevention": "Water the soil, not the leaves"}
    ],
    "additional_tips": ["Remove flower buds to keep leaves sweet"]
  },
  "visual_guide": {"status": "success", "file_url": "/files/basil.png", "file_type": "png"},
  "metadata": {"processing_time_seconds": 1.2}
}`

// FakeBackend stands in for the guide generation service.
type FakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	status   int
	body     string
	healthy  bool
	gate     chan struct{}
	requests []map[string]interface{}
}

// NewFakeBackend starts a backend that answers every request with
// SampleGuideResponse. It is closed when the test ends.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	b := &FakeBackend{status: http.StatusOK, body: SampleGuideResponse, healthy: true}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /generate-plant-guide", b.generate)
	mux.HandleFunc("GET /health", b.health)
	b.Server = httptest.NewServer(mux)
	t.Cleanup(func() {
		b.Release()
		b.Server.Close()
	})
	return b
}

// Respond sets the status and raw body of the next answers.
func (b *FakeBackend) Respond(status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status, b.body = status, body
}

// SetHealthy controls the /health answer.
func (b *FakeBackend) SetHealthy(healthy bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.healthy = healthy
}

// Hold makes generate requests wait until Release is called.
func (b *FakeBackend) Hold() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gate == nil {
		b.gate = make(chan struct{})
	}
}

// Release lets held requests answer.
func (b *FakeBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gate != nil {
		close(b.gate)
		b.gate = nil
	}
}

// Requests returns the decoded bodies received so far.
func (b *FakeBackend) Requests() []map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]interface{}(nil), b.requests...)
}

func (b *FakeBackend) generate(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	b.requests = append(b.requests, body)
	gate := b.gate
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	b.mu.Lock()
	status, resp := b.status, b.body
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, resp)
}

func (b *FakeBackend) health(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	healthy := b.healthy
	b.mu.Unlock()

	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"status":"healthy"}`)
}

// CompleteForm returns a filled-in form for input.
func CompleteForm(input models.FormInput) url.Values {
	form := url.Values{}
	for _, field := range models.FormFields {
		form.Set(field, input.Get(field))
	}
	return form
}

// SampleInput is a valid form submission.
func SampleInput() models.FormInput {
	return models.FormInput{
		PlantName:         "Basil",
		PlantType:         "Medicinal",
		Climate:           "Temperate",
		SunlightHours:     "6",
		SoilType:          "Loamy",
		WateringFrequency: "Daily",
		ExperienceLevel:   "Beginner",
	}
}

// NewFormRequest builds a urlencoded POST.
func NewFormRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// ParseJSONResponse parses a JSON response body into a map.
func ParseJSONResponse(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v", err)
	}
	return result
}
