package guide

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/HammerMeetNail/plantcare/internal/config"
	"github.com/HammerMeetNail/plantcare/internal/logging"
	"github.com/HammerMeetNail/plantcare/internal/models"
)

const (
	generatePath    = "/generate-plant-guide"
	healthPath      = "/health"
	maxErrorBody    = 4 * 1024
	maxResponseBody = 2 * 1024 * 1024
)

// UsageStats describes one finished backend call. No guide content is kept.
type UsageStats struct {
	RequestID  uuid.UUID
	SessionID  string
	PlantType  string
	Climate    string
	Status     string
	HTTPStatus int
	Duration   time.Duration
}

// UsageLogger receives one UsageStats per RequestGuide call.
type UsageLogger interface {
	LogUsage(ctx context.Context, stats UsageStats) error
}

// Client is the gateway to the plant-guide backend.
type Client struct {
	baseURL string
	client  *http.Client
	usage   UsageLogger
	health  singleflight.Group
}

func NewClient(cfg *config.Config, usage UsageLogger) *Client {
	return &Client{
		baseURL: cfg.API.BaseURL,
		client:  &http.Client{Timeout: cfg.API.Timeout},
		usage:   usage,
	}
}

type sessionKey struct{}

// WithSessionID tags ctx so usage records can be grouped per browser session.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

func sessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// RequestGuide sends one generate request and maps the answer into the
// display model. It never retries.
func (c *Client) RequestGuide(ctx context.Context, input models.FormInput) (*models.Guide, error) {
	stats := UsageStats{
		RequestID: uuid.New(),
		SessionID: sessionIDFrom(ctx),
		PlantType: input.PlantType,
		Climate:   input.Climate,
	}
	start := time.Now()
	log := logging.FromContext(ctx).WithField("guide_request_id", stats.RequestID.String())

	guide, status, err := c.requestGuide(ctx, input)

	stats.Duration = time.Since(start)
	stats.HTTPStatus = status
	stats.Status = Outcome(err)
	c.logUsageWithTimeout(stats)

	if err != nil {
		fields := map[string]interface{}{
			"outcome":     stats.Status,
			"http_status": status,
			"duration_ms": stats.Duration.Milliseconds(),
			"error":       err.Error(),
		}
		if stats.Status == "canceled" {
			log.Info("Guide request canceled", fields)
		} else {
			log.Warn("Guide request failed", fields)
		}
		return nil, err
	}

	log.Info("Guide received", map[string]interface{}{
		"growth_stages": len(guide.GrowthStages),
		"problems":      len(guide.CommonProblems),
		"duration_ms":   stats.Duration.Milliseconds(),
	})
	return guide, nil
}

func (c *Client) requestGuide(ctx context.Context, input models.FormInput) (*models.Guide, int, error) {
	payload, err := buildRequest(input)
	if err != nil {
		return nil, 0, err
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal guide request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		return nil, 0, fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}
	defer func() {
		// Drain and close the body to ensure connection reuse
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := errorMessage(bodyBytes)
		if msg == "" {
			msg = fmt.Sprintf("Server error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return nil, resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, resp.StatusCode, ctxErr
		}
		return nil, resp.StatusCode, fmt.Errorf("%w: reading response: %v", ErrBackendUnreachable, err)
	}

	guide, err := decodeGuide(body, input.PlantName)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return guide, resp.StatusCode, nil
}

// errorMessage pulls a human-readable message out of an error body. It
// checks "detail", "error" and "message" in that order; a FastAPI
// validation list under "detail" is joined.
func errorMessage(body []byte) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"detail", "error", "message"} {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			if text = strings.TrimSpace(text); text != "" {
				return text
			}
			continue
		}
		if key != "detail" {
			continue
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(raw, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if m := strings.TrimSpace(item.Msg); m != "" {
					msgs = append(msgs, m)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	return ""
}

func (c *Client) logUsageWithTimeout(stats UsageStats) {
	if c.usage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.usage.LogUsage(ctx, stats); err != nil {
		logging.Error("Failed to log guide usage", map[string]interface{}{
			"error":            err.Error(),
			"guide_request_id": stats.RequestID.String(),
		})
	}
}

// Status is the backend liveness as shown in the page header.
type Status string

const (
	StatusOnline  Status = "online"
	StatusError   Status = "error"
	StatusOffline Status = "offline"
)

// Health probes GET /health. Concurrent callers share one upstream request.
func (c *Client) Health(ctx context.Context) Status {
	ch := c.health.DoChan("health", func() (interface{}, error) {
		probeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return c.probe(probeCtx), nil
	})

	select {
	case res := <-ch:
		return res.Val.(Status)
	case <-ctx.Done():
		return StatusOffline
	}
}

func (c *Client) probe(ctx context.Context) Status {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return StatusOffline
	}
	resp, err := c.client.Do(req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logging.Warn("Backend health check failed", map[string]interface{}{"error": err.Error()})
		}
		return StatusOffline
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return StatusOnline
	}
	return StatusError
}
