package handlers

import (
	"context"

	"github.com/HammerMeetNail/plantcare/internal/flow"
	"github.com/HammerMeetNail/plantcare/internal/models"
	"github.com/HammerMeetNail/plantcare/internal/services/guide"
)

type MockGuideFlow struct {
	SubmitFunc   func(ctx context.Context, sessionID string, input models.FormInput) (flow.Snapshot, error)
	ResetFunc    func(ctx context.Context, sessionID string) error
	SnapshotFunc func(ctx context.Context, sessionID string) (flow.Snapshot, error)
}

func (m *MockGuideFlow) Submit(ctx context.Context, sessionID string, input models.FormInput) (flow.Snapshot, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, sessionID, input)
	}
	return flow.Snapshot{State: flow.State{Phase: flow.PhaseSubmitting}}, nil
}

func (m *MockGuideFlow) Reset(ctx context.Context, sessionID string) error {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGuideFlow) Snapshot(ctx context.Context, sessionID string) (flow.Snapshot, error) {
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(ctx, sessionID)
	}
	return flow.Snapshot{State: flow.Idle()}, nil
}

type MockGuideService struct {
	RequestGuideFunc func(ctx context.Context, input models.FormInput) (*models.Guide, error)
	HealthFunc       func(ctx context.Context) guide.Status
}

func (m *MockGuideService) RequestGuide(ctx context.Context, input models.FormInput) (*models.Guide, error) {
	if m.RequestGuideFunc != nil {
		return m.RequestGuideFunc(ctx, input)
	}
	return &models.Guide{}, nil
}

func (m *MockGuideService) Health(ctx context.Context) guide.Status {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return guide.StatusOnline
}

func snapshotOf(state flow.State, progress int) func(ctx context.Context, sessionID string) (flow.Snapshot, error) {
	return func(ctx context.Context, sessionID string) (flow.Snapshot, error) {
		return flow.Snapshot{State: state, Progress: progress}, nil
	}
}
