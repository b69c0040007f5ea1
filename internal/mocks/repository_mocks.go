package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"rephrase-server/internal/model"
	"rephrase-server/internal/repository"
)

// MockUserRepository is a mock type for the UserRepository type
type MockUserRepository struct {
	mock.Mock
}

func (_m *MockUserRepository) LockBalance(ctx context.Context, db repository.DBTX, userID uuid.UUID) (int64, error) {
	ret := _m.Called(ctx, db, userID)
	balance, _ := ret.Get(0).(int64)
	return balance, ret.Error(1)
}

func (_m *MockUserRepository) UpdateBalance(ctx context.Context, db repository.DBTX, userID uuid.UUID, newBalance int64) error {
	ret := _m.Called(ctx, db, userID, newBalance)
	return ret.Error(0)
}

// MockStyleRepository is a mock type for the StyleRepository type
type MockStyleRepository struct {
	mock.Mock
}

func (_m *MockStyleRepository) GetEnabledPrompt(ctx context.Context, db repository.DBTX, styleID uuid.UUID) (string, error) {
	ret := _m.Called(ctx, db, styleID)
	return ret.String(0), ret.Error(1)
}

func (_m *MockStyleRepository) ListEnabled(ctx context.Context, db repository.DBTX) ([]model.Style, error) {
	ret := _m.Called(ctx, db)
	styles, _ := ret.Get(0).([]model.Style)
	return styles, ret.Error(1)
}

// MockRephraseRepository is a mock type for the RephraseRepository type
type MockRephraseRepository struct {
	mock.Mock
}

func (_m *MockRephraseRepository) FindReplayable(ctx context.Context, db repository.DBTX, userID, idempotencyKey uuid.UUID) (*model.RephraseRecord, error) {
	ret := _m.Called(ctx, db, userID, idempotencyKey)
	rec, _ := ret.Get(0).(*model.RephraseRecord)
	return rec, ret.Error(1)
}

func (_m *MockRephraseRepository) Insert(ctx context.Context, db repository.DBTX, record *model.RephraseRecord) error {
	ret := _m.Called(ctx, db, record)
	if rf, ok := ret.Get(0).(func(context.Context, repository.DBTX, *model.RephraseRecord) error); ok {
		return rf(ctx, db, record)
	}
	return ret.Error(0)
}

func NewMockUserRepository(t testingT) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func NewMockStyleRepository(t testingT) *MockStyleRepository {
	m := &MockStyleRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func NewMockRephraseRepository(t testingT) *MockRephraseRepository {
	m := &MockRephraseRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var (
	_ repository.UserRepository     = (*MockUserRepository)(nil)
	_ repository.StyleRepository    = (*MockStyleRepository)(nil)
	_ repository.RephraseRepository = (*MockRephraseRepository)(nil)
)
