package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
)

// decodeJSON fails the test unless rr carries a JSON body that decodes into T.
func decodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected JSON response, got Content-Type %q (body %q)", ct, rr.Body.String())
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

// assertErrorResponse checks the {"error": ...} body the guide and page
// handlers send for rejected requests.
func assertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d (body %q)", status, rr.Code, rr.Body.String())
	}
	if got := decodeJSON[ErrorResponse](t, rr).Error; got != message {
		t.Fatalf("expected error %q, got %q", message, got)
	}
}
