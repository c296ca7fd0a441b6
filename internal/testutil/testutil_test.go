package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HammerMeetNail/plantcare/internal/models"
)

func TestFakeBackend_Generate(t *testing.T) {
	b := NewFakeBackend(t)

	resp, err := http.Post(b.URL+"/generate-plant-guide", "application/json", bytes.NewReader([]byte(`{"plant_name":"Basil"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["success"])

	reqs := b.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Basil", reqs[0]["plant_name"])
}

func TestFakeBackend_RespondAndHealth(t *testing.T) {
	b := NewFakeBackend(t)
	b.Respond(http.StatusInternalServerError, `{"detail":"model overloaded"}`)
	b.SetHealthy(false)

	resp, err := http.Post(b.URL+"/generate-plant-guide", "application/json", nil)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"detail":"model overloaded"}`, string(body))

	resp, err = http.Get(b.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestFakeBackend_HoldRelease(t *testing.T) {
	b := NewFakeBackend(t)
	b.Hold()

	done := make(chan int, 1)
	go func() {
		resp, err := http.Post(b.URL+"/generate-plant-guide", "application/json", nil)
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()

	select {
	case <-done:
		t.Fatal("held request answered early")
	case <-time.After(50 * time.Millisecond):
	}

	b.Release()
	select {
	case status := <-done:
		assert.Equal(t, http.StatusOK, status)
	case <-time.After(2 * time.Second):
		t.Fatal("released request never answered")
	}
}

func TestCompleteForm(t *testing.T) {
	form := CompleteForm(SampleInput())
	for _, field := range models.FormFields {
		assert.NotEmpty(t, form.Get(field), field)
	}
	assert.Equal(t, "6", form.Get(models.FieldSunlightHours))
}
