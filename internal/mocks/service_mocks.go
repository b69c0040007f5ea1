package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"rephrase-server/internal/model"
	"rephrase-server/internal/service"
)

// MockLLMProvider is a mock type for the LLMProvider type
type MockLLMProvider struct {
	mock.Mock
}

func (_m *MockLLMProvider) Name() string {
	ret := _m.Called()
	return ret.String(0)
}

func (_m *MockLLMProvider) Rephrase(ctx context.Context, prompt string) model.Outcome {
	ret := _m.Called(ctx, prompt)
	if rf, ok := ret.Get(0).(func(context.Context, string) model.Outcome); ok {
		return rf(ctx, prompt)
	}
	outcome, _ := ret.Get(0).(model.Outcome)
	return outcome
}

// MockReplayCache is a mock type for the ReplayCache type
type MockReplayCache struct {
	mock.Mock
}

func (_m *MockReplayCache) Get(ctx context.Context, userID, idempotencyKey uuid.UUID) (model.RephraseResult, bool) {
	ret := _m.Called(ctx, userID, idempotencyKey)
	result, _ := ret.Get(0).(model.RephraseResult)
	return result, ret.Bool(1)
}

func (_m *MockReplayCache) Put(ctx context.Context, userID, idempotencyKey uuid.UUID, result model.RephraseResult) {
	_m.Called(ctx, userID, idempotencyKey, result)
}

// MockUsagePublisher is a mock type for the UsagePublisher type
type MockUsagePublisher struct {
	mock.Mock
}

func (_m *MockUsagePublisher) PublishUsage(ctx context.Context, event model.RephraseUsageEvent) error {
	ret := _m.Called(ctx, event)
	return ret.Error(0)
}

// MockRephraseService is a mock type for the RephraseService type
type MockRephraseService struct {
	mock.Mock
}

func (_m *MockRephraseService) Rephrase(ctx context.Context, userID uuid.UUID, req model.RephraseRequest) (model.RephraseResult, error) {
	ret := _m.Called(ctx, userID, req)
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID, model.RephraseRequest) (model.RephraseResult, error)); ok {
		return rf(ctx, userID, req)
	}
	result, _ := ret.Get(0).(model.RephraseResult)
	return result, ret.Error(1)
}

func (_m *MockRephraseService) ListStyles(ctx context.Context) ([]model.Style, error) {
	ret := _m.Called(ctx)
	styles, _ := ret.Get(0).([]model.Style)
	return styles, ret.Error(1)
}

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

func NewMockLLMProvider(t testingT) *MockLLMProvider {
	m := &MockLLMProvider{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func NewMockReplayCache(t testingT) *MockReplayCache {
	m := &MockReplayCache{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func NewMockUsagePublisher(t testingT) *MockUsagePublisher {
	m := &MockUsagePublisher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func NewMockRephraseService(t testingT) *MockRephraseService {
	m := &MockRephraseService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var (
	_ service.LLMProvider     = (*MockLLMProvider)(nil)
	_ service.ReplayCache     = (*MockReplayCache)(nil)
	_ service.UsagePublisher  = (*MockUsagePublisher)(nil)
	_ service.RephraseService = (*MockRephraseService)(nil)
)
