package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rephrase-server/internal/mocks"
	"rephrase-server/internal/model"
	"rephrase-server/internal/service"
)

type fakeTx struct {
	pgx.Tx
	commits   int
	rollbacks int
}

func (f *fakeTx) Commit(context.Context) error   { f.commits++; return nil }
func (f *fakeTx) Rollback(context.Context) error { f.rollbacks++; return nil }

type fakeDB struct {
	tx     *fakeTx
	begins int
}

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	d.begins++
	return d.tx, nil
}

func (d *fakeDB) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("unexpected Exec outside transaction")
}

func (d *fakeDB) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("unexpected Query outside transaction")
}

func (d *fakeDB) QueryRow(context.Context, string, ...interface{}) pgx.Row { return nil }

type workflowFixture struct {
	db        *fakeDB
	users     *mocks.MockUserRepository
	styles    *mocks.MockStyleRepository
	rephrases *mocks.MockRephraseRepository
	cache     *mocks.MockReplayCache
	publisher *mocks.MockUsagePublisher
	svc       service.RephraseService

	userID  uuid.UUID
	styleID uuid.UUID
	key     uuid.UUID
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	return newWorkflowFixtureWithLLM(t, service.NewFakeLLMProvider(0))
}

func newWorkflowFixtureWithLLM(t *testing.T, llm service.LLMProvider) *workflowFixture {
	f := &workflowFixture{
		db:        &fakeDB{tx: &fakeTx{}},
		users:     mocks.NewMockUserRepository(t),
		styles:    mocks.NewMockStyleRepository(t),
		rephrases: mocks.NewMockRephraseRepository(t),
		cache:     mocks.NewMockReplayCache(t),
		publisher: mocks.NewMockUsagePublisher(t),
		userID:    uuid.New(),
		styleID:   uuid.New(),
		key:       uuid.New(),
	}
	f.svc = service.NewRephraseService(service.Deps{
		DB:        f.db,
		Users:     f.users,
		Styles:    f.styles,
		Rephrases: f.rephrases,
		LLM:       llm,
		Cache:     f.cache,
		Publisher: f.publisher,
		Logger:    zap.NewNop(),
	})
	return f
}

func (f *workflowFixture) request(text string) model.RephraseRequest {
	return model.RephraseRequest{Text: text, StyleID: f.styleID.String(), IdempotencyKey: f.key.String()}
}

func (f *workflowFixture) expectCacheMiss() {
	f.cache.On("Get", mock.Anything, f.userID, f.key).Return(model.RephraseResult{}, false).Once()
}

func (f *workflowFixture) expectNoPriorRecord() {
	f.rephrases.On("FindReplayable", mock.Anything, mock.Anything, f.userID, f.key).Return(nil, model.ErrNotFound).Once()
}

func (f *workflowFixture) expectInsert(check func(rec *model.RephraseRecord)) {
	f.rephrases.On("Insert", mock.Anything, mock.Anything, mock.AnythingOfType("*model.RephraseRecord")).
		Run(func(args mock.Arguments) {
			rec := args.Get(2).(*model.RephraseRecord)
			rec.ID = uuid.New()
			check(rec)
		}).
		Return(nil).Once()
}

func TestRephrase_SuccessDebitsAndCommits(t *testing.T) {
	f := newWorkflowFixture(t)
	f.expectCacheMiss()
	f.users.On("LockBalance", mock.Anything, mock.Anything, f.userID).Return(int64(100), nil).Once()
	f.expectNoPriorRecord()
	f.styles.On("GetEnabledPrompt", mock.Anything, mock.Anything, f.styleID).Return("Some prompt", nil).Once()
	f.users.On("UpdateBalance", mock.Anything, mock.Anything, f.userID, int64(94)).Return(nil).Once()

	wantText := "rephrased Fake global prompt.\n\nSome prompt\n\nInput text: hellow"
	f.expectInsert(func(rec *model.RephraseRecord) {
		assert.Equal(t, model.StatusRephrased, rec.Status)
		assert.Equal(t, int64(6), rec.Cost)
		require.NotNil(t, rec.OutputText)
		assert.Equal(t, wantText, *rec.OutputText)
		assert.Equal(t, "Fake global prompt.\n\nSome prompt\n\nInput text: hellow", rec.Prompt)
		assert.Equal(t, "fake", rec.Model)
		assert.Equal(t, 10, rec.ModelInputTokens)
		assert.Equal(t, 200, rec.ModelOutputTokens)
		assert.Nil(t, rec.ErrorMessage)
	})
	f.cache.On("Put", mock.Anything, f.userID, f.key,
		model.RephraseResult{Kind: model.ResultReplayed, Rephrased: wantText}).Once()
	f.publisher.On("PublishUsage", mock.Anything, mock.MatchedBy(func(e model.RephraseUsageEvent) bool {
		return e.Status == model.StatusRephrased && e.Cost == 6 && e.UserID == f.userID.String()
	})).Return(nil).Once()

	result, err := f.svc.Rephrase(context.Background(), f.userID, f.request("hellow"))

	require.NoError(t, err)
	assert.Equal(t, model.RephraseResult{Kind: model.ResultRephrased, Rephrased: wantText}, result)
	assert.Equal(t, 1, f.db.tx.commits)
	assert.Equal(t, 0, f.db.tx.rollbacks)
}

func TestRephrase_ReplayReturnsStoredTextWithoutCharging(t *testing.T) {
	f := newWorkflowFixture(t)
	f.expectCacheMiss()
	f.users.On("LockBalance", mock.Anything, mock.Anything, f.userID).Return(int64(100), nil).Once()
	stored := "first answer"
	f.rephrases.On("FindReplayable", mock.Anything, mock.Anything, f.userID, f.key).Return(&model.RephraseRecord{
		Status:     model.StatusRephrased,
		OutputText: &stored,
	}, nil).Once()
	f.cache.On("Put", mock.Anything, f.userID, f.key,
		model.RephraseResult{Kind: model.ResultReplayed, Rephrased: stored}).Once()

	result, err := f.svc.Rephrase(context.Background(), f.userID, f.request("completely different text"))

	require.NoError(t, err)
	assert.Equal(t, model.ResultReplayed, result.Kind)
	assert.Equal(t, stored, result.Rephrased)
	f.users.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.styles.AssertNotCalled(t, "GetEnabledPrompt", mock.Anything, mock.Anything, mock.Anything)
	f.publisher.AssertNotCalled(t, "PublishUsage", mock.Anything, mock.Anything)
}

func TestRephrase_ReplayOfUserFailure(t *testing.T) {
	f := newWorkflowFixture(t)
	f.expectCacheMiss()
	f.users.On("LockBalance", mock.Anything, mock.Anything, f.userID).Return(int64(100), nil).Once()
	reason := model.MsgInputViolatesAgreement
	f.rephrases.On("FindReplayable", mock.Anything, mock.Anything, f.userID, f.key).Return(&model.RephraseRecord{
		Status:       model.StatusBadUserRequest,
		ErrorMessage: &reason,
	}, nil).Once()
	f.cache.On("Put", mock.Anything, f.userID, f.key, mock.Anything).Once()

	result, err := f.svc.Rephrase(context.Background(), f.userID, f.request("hellow"))

	require.NoError(t, err)
	assert.Equal(t, model.RephraseResult{Kind: model.ResultRejectedByGenerator, Reason: reason}, result)
}

func TestRephrase_CacheHitSkipsTransaction(t *testing.T) {
	f := newWorkflowFixture(t)
	cached := model.RephraseResult{Kind: model.ResultReplayed, Rephrased: "cached"}
	f.cache.On("Get", mock.Anything, f.userID, f.key).Return(cached, true).Once()

	result, err := f.svc.Rephrase(context.Background(), f.userID, f.request("hellow"))

	require.NoError(t, err)
	assert.Equal(t, cached, result)
	assert.Equal(t, 0, f.db.begins)
}

func TestRephrase_InsufficientFundsRollsBack(t *testing.T) {
	f := newWorkflowFixture(t)
	f.expectCacheMiss()
	f.users.On("LockBalance", mock.Anything, mock.Anything, f.userID).Return(int64(5), nil).Once()
	f.expectNoPriorRecord()

	_, err := f.svc.Rephrase(context.Background(), f.userID, f.request("hellow"))

	require.ErrorIs(t, err, model.ErrInsufficientFunds)
	assert.Equal(t, 0, f.db.tx.commits)
	assert.Equal(t, 1, f.db.tx.rollbacks)
	f.users.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.rephrases.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
}

func TestRephrase_ExactBalanceIsEnough(t *testing.T) {
	f := newWorkflowFixture(t)
	f.expectCacheMiss()
	f.users.On("LockBalance", mock.Anything, mock.Anything, f.userID).Return(int64(6), nil).Once()
	f.expectNoPriorRecord()
	f.styles.On("GetEnabledPrompt", mock.Anything, mock.Anything, f.styleID).Return("Some prompt", nil).Once()
	f.users.On("UpdateBalance", mock.Anything, mock.Anything, f.userID, int64(0)).Return(nil).Once()
	f.expectInsert(func(rec *model.RephraseRecord) {})
	f.cache.On("Put", mock.Anything, f.userID, f.key, mock.Anything).Once()
	f.publisher.On("PublishUsage", mock.Anything, mock.Anything).Return(nil).Once()

	result, err := f.svc.Rephrase(context.Background(), f.userID, f.request("hellow"))

	require.NoError(t, err)
	assert.Equal(t, model.ResultRephrased, result.Kind)
}

func TestRephrase_StyleNotFoundRollsBack(t *testing.T) {
	f := newWorkflowFixture(t)
	f.expectCacheMiss()
	f.users.On("LockBalance", mock.Anything, mock.Anything, f.userID).Return(int64(100), nil).Once()
	f.expectNoPriorRecord()
	f.styles.On("GetEnabledPrompt", mock.Anything, mock.Anything, f.styleID).Return("", model.ErrStyleNotFound).Once()

	_, err := f.svc.Rephrase(context.Background(), f.userID, f.request("hellow"))

	require.ErrorIs(t, err, model.ErrStyleNotFound)
	assert.Equal(t, 1, f.db.tx.rollbacks)
	assert.Equal(t, 0, f.db.tx.commits)
	f.rephrases.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
}

func TestRephrase_MissingUserRowRollsBack(t *testing.T) {
	f := newWorkflowFixture(t)
	f.expectCacheMiss()
	f.users.On("LockBalance", mock.Anything, mock.Anything, f.userID).Return(int64(0), model.ErrUserNotFound).Once()

	_, err := f.svc.Rephrase(context.Background(), f.userID, f.request("hellow"))

	require.ErrorIs(t, err, model.ErrUserNotFound)
	assert.Equal(t, 1, f.db.tx.rollbacks)
	f.rephrases.AssertNotCalled(t, "FindReplayable", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRephrase_UserFailureIsChargedAndCommitted(t *testing.T) {
	f := newWorkflowFixture(t)
	f.expectCacheMiss()
	text := "USER_ERROR please"
	f.users.On("LockBalance", mock.Anything, mock.Anything, f.userID).Return(int64(100), nil).Once()
	f.expectNoPriorRecord()
	f.styles.On("GetEnabledPrompt", mock.Anything, mock.Anything, f.styleID).Return("Some prompt", nil).Once()
	f.users.On("UpdateBalance", mock.Anything, mock.Anything, f.userID, int64(100-17)).Return(nil).Once()
	f.expectInsert(func(rec *model.RephraseRecord) {
		assert.Equal(t, model.StatusBadUserRequest, rec.Status)
		assert.Equal(t, int64(17), rec.Cost)
		assert.Nil(t, rec.OutputText)
		require.NotNil(t, rec.ErrorMessage)
		assert.Equal(t, model.MsgInputViolatesAgreement, *rec.ErrorMessage)
		require.NotNil(t, rec.ErrorMessageInternal)
		assert.Equal(t, "User input validation failed", *rec.ErrorMessageInternal)
		assert.Equal(t, 5, rec.ModelInputTokens)
		assert.Equal(t, 10, rec.ModelOutputTokens)
	})
	f.cache.On("Put", mock.Anything, f.userID, f.key,
		model.RephraseResult{Kind: model.ResultRejectedByGenerator, Reason: model.MsgInputViolatesAgreement}).Once()
	f.publisher.On("PublishUsage", mock.Anything, mock.Anything).Return(nil).Once()

	result, err := f.svc.Rephrase(context.Background(), f.userID, f.request(text))

	require.NoError(t, err)
	assert.Equal(t, model.RephraseResult{Kind: model.ResultRejectedByGenerator, Reason: model.MsgInputViolatesAgreement}, result)
	assert.NotContains(t, result.Reason, "validation failed")
	assert.Equal(t, 1, f.db.tx.commits)
}

func TestRephrase_SystemFailureWritesAuditRowWithoutCharge(t *testing.T) {
	f := newWorkflowFixture(t)
	f.expectCacheMiss()
	f.users.On("LockBalance", mock.Anything, mock.Anything, f.userID).Return(int64(100), nil).Once()
	f.expectNoPriorRecord()
	f.styles.On("GetEnabledPrompt", mock.Anything, mock.Anything, f.styleID).Return("Some prompt", nil).Once()
	f.expectInsert(func(rec *model.RephraseRecord) {
		assert.Equal(t, model.StatusFailed, rec.Status)
		assert.Equal(t, int64(0), rec.Cost)
		require.NotNil(t, rec.ErrorMessage)
		assert.Equal(t, model.MsgServerError, *rec.ErrorMessage)
		require.NotNil(t, rec.ErrorMessageInternal)
		assert.Equal(t, "Internal server error occurred", *rec.ErrorMessageInternal)
		assert.Equal(t, f.key, rec.IdempotencyKey)
	})
	f.publisher.On("PublishUsage", mock.Anything, mock.MatchedBy(func(e model.RephraseUsageEvent) bool {
		return e.Status == model.StatusFailed && e.Cost == 0
	})).Return(nil).Once()

	result, err := f.svc.Rephrase(context.Background(), f.userID, f.request("SERVER_ERROR now"))

	require.NoError(t, err)
	assert.Equal(t, model.ResultGenerationFailed, result.Kind)
	assert.Equal(t, 1, f.db.tx.commits)
	f.users.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.cache.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRephrase_InsertFailureRollsBack(t *testing.T) {
	f := newWorkflowFixture(t)
	f.expectCacheMiss()
	f.users.On("LockBalance", mock.Anything, mock.Anything, f.userID).Return(int64(100), nil).Once()
	f.expectNoPriorRecord()
	f.styles.On("GetEnabledPrompt", mock.Anything, mock.Anything, f.styleID).Return("Some prompt", nil).Once()
	f.users.On("UpdateBalance", mock.Anything, mock.Anything, f.userID, int64(94)).Return(nil).Once()
	dbErr := errors.New("disk full")
	f.rephrases.On("Insert", mock.Anything, mock.Anything, mock.Anything).Return(dbErr).Once()

	_, err := f.svc.Rephrase(context.Background(), f.userID, f.request("hellow"))

	require.ErrorIs(t, err, dbErr)
	assert.Equal(t, 0, f.db.tx.commits)
	assert.Equal(t, 1, f.db.tx.rollbacks)
	f.publisher.AssertNotCalled(t, "PublishUsage", mock.Anything, mock.Anything)
}

func TestRephrase_PublishFailureDoesNotChangeResponse(t *testing.T) {
	f := newWorkflowFixture(t)
	f.expectCacheMiss()
	f.users.On("LockBalance", mock.Anything, mock.Anything, f.userID).Return(int64(100), nil).Once()
	f.expectNoPriorRecord()
	f.styles.On("GetEnabledPrompt", mock.Anything, mock.Anything, f.styleID).Return("Some prompt", nil).Once()
	f.users.On("UpdateBalance", mock.Anything, mock.Anything, f.userID, int64(94)).Return(nil).Once()
	f.expectInsert(func(rec *model.RephraseRecord) {})
	f.cache.On("Put", mock.Anything, f.userID, f.key, mock.Anything).Once()
	f.publisher.On("PublishUsage", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	result, err := f.svc.Rephrase(context.Background(), f.userID, f.request("hellow"))

	require.NoError(t, err)
	assert.Equal(t, model.ResultRephrased, result.Kind)
}

func TestRephrase_ClientDisconnectDoesNotAbortWorkflow(t *testing.T) {
	llm := mocks.NewMockLLMProvider(t)
	f := newWorkflowFixtureWithLLM(t, llm)
	ctx, cancel := context.WithCancel(context.Background())
	llm.On("Name").Return("mock")
	llm.On("Rephrase", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), mock.Anything).
		Return(model.Success{Text: "done", InputTokens: 1, OutputTokens: 1}).Once()
	f.cache.On("Get", mock.Anything, f.userID, f.key).Return(model.RephraseResult{}, false).Once()
	f.users.On("LockBalance", mock.Anything, mock.Anything, f.userID).
		Run(func(mock.Arguments) { cancel() }).
		Return(int64(100), nil).Once()
	f.expectNoPriorRecord()
	f.styles.On("GetEnabledPrompt", mock.Anything, mock.Anything, f.styleID).Return("Some prompt", nil).Once()
	f.users.On("UpdateBalance", mock.Anything, mock.Anything, f.userID, int64(94)).Return(nil).Once()
	f.expectInsert(func(rec *model.RephraseRecord) {
		assert.Equal(t, model.StatusRephrased, rec.Status)
	})
	f.cache.On("Put", mock.Anything, f.userID, f.key, mock.Anything).Once()
	f.publisher.On("PublishUsage", mock.Anything, mock.Anything).Return(nil).Once()

	result, err := f.svc.Rephrase(ctx, f.userID, f.request("hellow"))

	require.NoError(t, err)
	assert.Equal(t, model.ResultRephrased, result.Kind)
}

func TestRephrase_InvalidIdentifiers(t *testing.T) {
	f := newWorkflowFixture(t)

	_, err := f.svc.Rephrase(context.Background(), f.userID, model.RephraseRequest{
		Text: "hellow", StyleID: "not-a-uuid", IdempotencyKey: f.key.String(),
	})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Equal(t, 0, f.db.begins)
}

func TestListStyles(t *testing.T) {
	f := newWorkflowFixture(t)
	styles := []model.Style{{ID: f.styleID, Name: "Formal", IsEnabled: true}}
	f.styles.On("ListEnabled", mock.Anything, f.db).Return(styles, nil).Once()

	got, err := f.svc.ListStyles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, styles, got)
}
