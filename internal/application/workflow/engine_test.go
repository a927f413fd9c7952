package workflow

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/procurement-workflow/internal/application/dispatcher"
	"github.com/garyjia/procurement-workflow/internal/application/port"
	"github.com/garyjia/procurement-workflow/internal/domain/entity"
	"github.com/garyjia/procurement-workflow/internal/domain/event"
	domainwf "github.com/garyjia/procurement-workflow/internal/domain/workflow"
)

// Mock implementations

type mockRequestRepo struct {
	mu       sync.Mutex
	requests map[int64]*entity.PurchaseRequest
	nextID   int64
	// casMiss forces the next UpdateIfStatus to report a lost race
	casMiss bool
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{requests: make(map[int64]*entity.PurchaseRequest)}
}

func (m *mockRequestRepo) Create(ctx context.Context, req *entity.PurchaseRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	req.ID = m.nextID
	req.RequestNumber = entity.FormatRequestNumber(req.CreatedAt.Year(), m.nextID)
	m.requests[req.ID] = req.Clone()
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id int64) (*entity.PurchaseRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	return req.Clone(), nil
}

func (m *mockRequestRepo) UpdateIfStatus(ctx context.Context, req *entity.PurchaseRequest, expected entity.RequestStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.casMiss {
		m.casMiss = false
		return false, nil
	}
	stored, ok := m.requests[req.ID]
	if !ok || stored.Status != expected {
		return false, nil
	}
	m.requests[req.ID] = req.Clone()
	return true, nil
}

func (m *mockRequestRepo) List(ctx context.Context, filter port.RequestFilter) ([]*entity.PurchaseRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.PurchaseRequest
	for _, r := range m.requests {
		if filter.RequesterID != 0 && r.RequesterID != filter.RequesterID {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRequestRepo) ListAwaitingCart(ctx context.Context, limit int) ([]*entity.PurchaseRequest, error) {
	all, _ := m.List(ctx, port.RequestFilter{})
	var out []*entity.PurchaseRequest
	for _, r := range all {
		if r.AwaitingCart() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRequestRepo) Stats(ctx context.Context, scope entity.StatsScope) (*entity.StatsSnapshot, error) {
	all, _ := m.List(ctx, port.RequestFilter{RequesterID: scope.RequesterID})
	return entity.ProjectStats(all), nil
}

type mockHistoryRepo struct {
	mu        sync.Mutex
	histories []*entity.RequestHistory
	createErr error
}

func (m *mockHistoryRepo) Create(ctx context.Context, history *entity.RequestHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	history.ID = int64(len(m.histories) + 1)
	m.histories = append(m.histories, history)
	return nil
}

func (m *mockHistoryRepo) GetByRequestID(ctx context.Context, requestID int64) ([]*entity.RequestHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*entity.RequestHistory
	for _, h := range m.histories {
		if h.RequestID == requestID {
			result = append(result, h)
		}
	}
	return result, nil
}

func (m *mockHistoryRepo) count(requestID int64) int {
	h, _ := m.GetByRequestID(context.Background(), requestID)
	return len(h)
}

// mockTxManager snapshots the request store and restores it when fn fails
type mockTxManager struct {
	repo    *mockRequestRepo
	history *mockHistoryRepo
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.repo.mu.Lock()
	saved := make(map[int64]*entity.PurchaseRequest, len(m.repo.requests))
	for k, v := range m.repo.requests {
		saved[k] = v
	}
	m.repo.mu.Unlock()

	m.history.mu.Lock()
	savedLen := len(m.history.histories)
	m.history.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.repo.mu.Lock()
		m.repo.requests = saved
		m.repo.mu.Unlock()
		m.history.mu.Lock()
		m.history.histories = m.history.histories[:savedLen]
		m.history.mu.Unlock()
		return err
	}
	return nil
}

type mockDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockDispatcher) Subscribe(eventType event.Type, handler dispatcher.Handler) {}

func (m *mockDispatcher) SubscribeNamed(eventType event.Type, name string, handler dispatcher.Handler) {
}

func (m *mockDispatcher) Unsubscribe(eventType event.Type, name string) {}

func (m *mockDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.DispatchAsync(ctx, evt)
	return nil
}

func (m *mockDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockDispatcher) ListHandlers(eventType event.Type) []dispatcher.HandlerInfo { return nil }

func (m *mockDispatcher) Close() error { return nil }

func (m *mockDispatcher) types() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event.Type, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

type mockCartQueue struct {
	jobs []port.CartRequest
	err  error
}

func (m *mockCartQueue) Enqueue(req port.CartRequest) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, req)
	return nil
}

type mockExtractor struct {
	meta  *port.ProductMetadata
	err   error
	calls int
}

func (m *mockExtractor) Extract(ctx context.Context, url string) (*port.ProductMetadata, error) {
	m.calls++
	return m.meta, m.err
}

// Test fixture

const (
	requesterID int64 = 10
	otherUserID int64 = 11
	managerID   int64 = 20
	adminID     int64 = 30
)

type fixture struct {
	engine   Engine
	repo     *mockRequestRepo
	history  *mockHistoryRepo
	events   *mockDispatcher
	queue    *mockCartQueue
	metadata *mockExtractor
}

func newFixture(opts ...EngineOption) *fixture {
	f := &fixture{
		repo:     newMockRequestRepo(),
		history:  &mockHistoryRepo{},
		events:   &mockDispatcher{},
		queue:    &mockCartQueue{},
		metadata: &mockExtractor{meta: &port.ProductMetadata{}},
	}
	tx := &mockTxManager{repo: f.repo, history: f.history}
	base := []EngineOption{
		WithDispatcher(f.events),
		WithCartQueue(f.queue),
		WithMetadataExtractor(f.metadata),
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }),
	}
	f.engine = NewEngine(f.repo, f.history, tx, append(base, opts...)...)
	return f
}

func (f *fixture) submit(t *testing.T, url string) *entity.PurchaseRequest {
	t.Helper()
	req, err := f.engine.Submit(context.Background(), requesterID, entity.RoleEmployee, SubmitInput{
		URL:           url,
		Quantity:      2,
		Justification: "Needed for the lab",
		ProductTitle:  "Widget",
	})
	require.NoError(t, err)
	return req
}

func actions(req *entity.PurchaseRequest) []entity.HistoryAction {
	out := make([]entity.HistoryAction, len(req.History))
	for i, h := range req.History {
		out[i] = h.Action
	}
	return out
}

// Tests

func TestSubmit(t *testing.T) {
	t.Run("creates pending request with creation history", func(t *testing.T) {
		f := newFixture()
		req := f.submit(t, "https://example.com/widget")

		assert.Equal(t, entity.StatusPending, req.Status)
		assert.Equal(t, "REQ-2026-0001", req.RequestNumber)
		assert.Equal(t, entity.UrgencyNormal, req.Urgency)
		assert.False(t, req.IsAmazonURL)
		require.Len(t, req.History, 1)
		assert.Equal(t, entity.ActionCreated, req.History[0].Action)
		assert.Nil(t, req.History[0].OldStatus)
		assert.Equal(t, []event.Type{event.TypeRequestSubmitted}, f.events.types())
	})

	t.Run("detects amazon and extracts asin", func(t *testing.T) {
		f := newFixture()
		req := f.submit(t, "https://www.amazon.com.mx/dp/B08N5WRWNW")

		assert.True(t, req.IsAmazonURL)
		assert.Equal(t, "B08N5WRWNW", req.AmazonASIN)
	})

	t.Run("fills missing fields from metadata", func(t *testing.T) {
		f := newFixture()
		f.metadata.meta = &port.ProductMetadata{
			Title:    "Fetched title",
			ImageURL: "https://cdn.example.com/w.jpg",
			Price:    decimal.NewNullDecimal(decimal.RequireFromString("199.90")),
			Currency: "USD",
		}

		req, err := f.engine.Submit(context.Background(), requesterID, entity.RoleEmployee, SubmitInput{
			URL:           "https://example.com/widget",
			Quantity:      1,
			Justification: "Replacement",
			ProductTitle:  "My title",
		})
		require.NoError(t, err)

		assert.Equal(t, 1, f.metadata.calls)
		assert.Equal(t, "My title", req.ProductTitle, "submitted fields win")
		assert.Equal(t, "https://cdn.example.com/w.jpg", req.ProductImageURL)
		assert.Equal(t, "199.9", req.EstimatedPrice.Decimal.String())
		assert.Equal(t, "USD", req.Currency)
	})

	t.Run("metadata failure is not fatal", func(t *testing.T) {
		f := newFixture()
		f.metadata.err = errors.New("timeout")

		req, err := f.engine.Submit(context.Background(), requesterID, entity.RoleEmployee, SubmitInput{
			URL:           "https://example.com/widget",
			Quantity:      1,
			Justification: "Replacement",
		})
		require.NoError(t, err)
		assert.Empty(t, req.ProductTitle)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name string
			in   SubmitInput
		}{
			{"missing url", SubmitInput{Quantity: 1, Justification: "x"}},
			{"non http url", SubmitInput{URL: "ftp://example.com/a", Quantity: 1, Justification: "x"}},
			{"zero quantity", SubmitInput{URL: "https://example.com", Quantity: 0, Justification: "x"}},
			{"blank justification", SubmitInput{URL: "https://example.com", Quantity: 1, Justification: "   "}},
			{"bad urgency", SubmitInput{URL: "https://example.com", Quantity: 1, Justification: "x", Urgency: "asap"}},
			{"negative price", SubmitInput{
				URL: "https://example.com", Quantity: 1, Justification: "x",
				EstimatedPrice: decimal.NewNullDecimal(decimal.NewFromInt(-1)),
			}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture()
				_, err := f.engine.Submit(context.Background(), requesterID, entity.RoleEmployee, tt.in)
				assert.ErrorIs(t, err, domainwf.ErrValidation)
				assert.Empty(t, f.repo.requests)
			})
		}
	})

	t.Run("unknown role cannot submit", func(t *testing.T) {
		f := newFixture()
		_, err := f.engine.Submit(context.Background(), requesterID, entity.Role("guest"), SubmitInput{
			URL: "https://example.com", Quantity: 1, Justification: "x",
		})
		assert.ErrorIs(t, err, domainwf.ErrUnauthorized)
	})
}

func TestApprove(t *testing.T) {
	t.Run("non amazon request stays approved", func(t *testing.T) {
		f := newFixture()
		req := f.submit(t, "https://example.com/widget")

		got, err := f.engine.Approve(context.Background(), req.ID, managerID, entity.RoleGeneralManager, "")
		require.NoError(t, err)

		assert.Equal(t, entity.StatusApproved, got.Status)
		require.NotNil(t, got.ApprovedByID)
		assert.Equal(t, managerID, *got.ApprovedByID)
		assert.NotNil(t, got.ApprovedAt)
		assert.Empty(t, f.queue.jobs)
		last := got.History[len(got.History)-1]
		assert.Equal(t, "Request approved", last.Comment)
		assert.Equal(t, entity.StatusPending, *last.OldStatus)
	})

	t.Run("amazon request is queued for cart", func(t *testing.T) {
		f := newFixture()
		req := f.submit(t, "https://www.amazon.com/dp/B08N5WRWNW")

		got, err := f.engine.Approve(context.Background(), req.ID, managerID, entity.RoleGeneralManager, "ok")
		require.NoError(t, err)

		assert.Equal(t, entity.StatusApproved, got.Status)
		assert.Equal(t, 1, got.CartAttempts)
		require.Len(t, f.queue.jobs, 1)
		assert.Equal(t, "B08N5WRWNW", f.queue.jobs[0].ASIN)
		assert.Equal(t, 2, f.queue.jobs[0].Quantity)
	})

	t.Run("full queue records a cart failure", func(t *testing.T) {
		f := newFixture()
		f.queue.err = port.ErrQueueFull
		req := f.submit(t, "https://www.amazon.com/dp/B08N5WRWNW")

		got, err := f.engine.Approve(context.Background(), req.ID, managerID, entity.RoleAdmin, "")
		require.NoError(t, err)

		assert.Equal(t, entity.StatusApproved, got.Status)
		require.True(t, got.HasCartError())
		assert.Contains(t, *got.CartError, "full")
		assert.Equal(t, []entity.HistoryAction{entity.ActionCreated, entity.ActionApproved, entity.ActionCartFailed}, actions(got))
	})

	t.Run("employee cannot approve", func(t *testing.T) {
		f := newFixture()
		req := f.submit(t, "https://example.com/widget")

		_, err := f.engine.Approve(context.Background(), req.ID, requesterID, entity.RoleEmployee, "")
		assert.ErrorIs(t, err, domainwf.ErrUnauthorized)
		assert.Equal(t, 1, f.history.count(req.ID))
	})

	t.Run("missing request", func(t *testing.T) {
		f := newFixture()
		_, err := f.engine.Approve(context.Background(), 999, managerID, entity.RoleGeneralManager, "")
		assert.ErrorIs(t, err, domainwf.ErrNotFound)
	})

	t.Run("second approval is invalid and writes no history", func(t *testing.T) {
		f := newFixture()
		req := f.submit(t, "https://example.com/widget")
		_, err := f.engine.Approve(context.Background(), req.ID, managerID, entity.RoleGeneralManager, "")
		require.NoError(t, err)

		_, err = f.engine.Approve(context.Background(), req.ID, managerID, entity.RoleGeneralManager, "")
		assert.ErrorIs(t, err, domainwf.ErrInvalidState)
		assert.Equal(t, 2, f.history.count(req.ID))
	})

	t.Run("lost race is invalid state", func(t *testing.T) {
		f := newFixture()
		req := f.submit(t, "https://example.com/widget")
		f.repo.casMiss = true

		_, err := f.engine.Approve(context.Background(), req.ID, managerID, entity.RoleGeneralManager, "")
		assert.ErrorIs(t, err, domainwf.ErrInvalidState)
		assert.Equal(t, 1, f.history.count(req.ID))
	})
}

func TestRejectAndRequestInfoNeedComment(t *testing.T) {
	f := newFixture()
	req := f.submit(t, "https://example.com/widget")

	_, err := f.engine.Reject(context.Background(), req.ID, managerID, entity.RoleGeneralManager, "  ")
	assert.ErrorIs(t, err, domainwf.ErrValidation)

	_, err = f.engine.RequestInfo(context.Background(), req.ID, managerID, entity.RoleGeneralManager, "")
	assert.ErrorIs(t, err, domainwf.ErrValidation)

	assert.Equal(t, 1, f.history.count(req.ID))

	got, err := f.engine.Reject(context.Background(), req.ID, managerID, entity.RoleGeneralManager, "Over budget")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, got.Status)
	require.NotNil(t, got.RejectionReason)
	assert.Equal(t, "Over budget", *got.RejectionReason)

	_, err = f.engine.Approve(context.Background(), req.ID, managerID, entity.RoleGeneralManager, "")
	assert.ErrorIs(t, err, domainwf.ErrInvalidState, "rejected is terminal")
}

func TestRequestInfoThenResubmit(t *testing.T) {
	f := newFixture()
	req := f.submit(t, "https://example.com/widget")

	got, err := f.engine.RequestInfo(context.Background(), req.ID, managerID, entity.RoleGeneralManager, "Which model?")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInfoRequested, got.Status)
	require.NotNil(t, got.InfoRequestNote)
	assert.Equal(t, "Which model?", *got.InfoRequestNote)

	t.Run("non owner is unauthorized", func(t *testing.T) {
		j := "changed"
		_, err := f.engine.Resubmit(context.Background(), req.ID, otherUserID, ResubmitInput{Justification: &j})
		assert.ErrorIs(t, err, domainwf.ErrUnauthorized)
	})

	t.Run("no change is a validation error", func(t *testing.T) {
		same := "Needed for the lab"
		_, err := f.engine.Resubmit(context.Background(), req.ID, requesterID, ResubmitInput{Justification: &same})
		assert.ErrorIs(t, err, domainwf.ErrValidation)

		_, err = f.engine.Resubmit(context.Background(), req.ID, requesterID, ResubmitInput{})
		assert.ErrorIs(t, err, domainwf.ErrValidation)
	})

	t.Run("owner resubmits", func(t *testing.T) {
		qty := 5
		got, err := f.engine.Resubmit(context.Background(), req.ID, requesterID, ResubmitInput{Quantity: &qty})
		require.NoError(t, err)

		assert.Equal(t, entity.StatusPending, got.Status)
		assert.Equal(t, 5, got.Quantity)
		assert.Equal(t, "Which model?", *got.InfoRequestNote, "note is kept for the approver")
		assert.Equal(t,
			[]entity.HistoryAction{entity.ActionCreated, entity.ActionReturned, entity.ActionResubmitted},
			actions(got))
		assert.Equal(t, "Request updated and resubmitted", got.History[2].Comment)
	})
}

func TestCancel(t *testing.T) {
	f := newFixture()
	req := f.submit(t, "https://example.com/widget")

	_, err := f.engine.Cancel(context.Background(), req.ID, otherUserID, "")
	assert.ErrorIs(t, err, domainwf.ErrUnauthorized)

	got, err := f.engine.Cancel(context.Background(), req.ID, requesterID, "No longer needed")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCancelled, got.Status)

	_, err = f.engine.Cancel(context.Background(), req.ID, requesterID, "")
	assert.ErrorIs(t, err, domainwf.ErrInvalidState)
}

func TestAmazonCartFailureRetrySuccess(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req := f.submit(t, "https://www.amazon.com/dp/B08N5WRWNW")

	_, err := f.engine.Approve(ctx, req.ID, managerID, entity.RoleGeneralManager, "")
	require.NoError(t, err)

	// retry is only allowed after a failure
	_, err = f.engine.RetryCart(ctx, req.ID, adminID, entity.RoleAdmin)
	assert.ErrorIs(t, err, domainwf.ErrInvalidState)

	got, err := f.engine.OnCartDispatchResult(ctx, req.ID, port.CartResult{Success: false})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, got.Status)
	assert.Equal(t, "cart dispatch failed", *got.CartError)

	_, err = f.engine.RetryCart(ctx, req.ID, managerID, entity.RoleGeneralManager)
	assert.ErrorIs(t, err, domainwf.ErrUnauthorized)

	got, err = f.engine.RetryCart(ctx, req.ID, adminID, entity.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, got.HasCartError())
	assert.Equal(t, 2, got.CartAttempts)
	assert.Len(t, f.queue.jobs, 2)

	got, err = f.engine.OnCartDispatchResult(ctx, req.ID, port.CartResult{Success: true})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPurchased, got.Status)
	assert.True(t, got.AddedToCart)
	assert.NotNil(t, got.AddedToCartAt)

	assert.Equal(t, []entity.HistoryAction{
		entity.ActionCreated,
		entity.ActionApproved,
		entity.ActionCartFailed,
		entity.ActionCartRetry,
		entity.ActionCartAdded,
	}, actions(got))
	for _, h := range got.History[2:] {
		if h.Action == entity.ActionCartRetry {
			assert.Equal(t, adminID, h.UserID)
			continue
		}
		assert.Equal(t, entity.SystemUserID, h.UserID)
	}

	assert.Equal(t, []event.Type{
		event.TypeRequestSubmitted,
		event.TypeRequestApproved,
		event.TypeCartFailed,
		event.TypeCartRetried,
		event.TypeCartAdded,
	}, f.events.types())

	// late duplicate result on a terminal request
	_, err = f.engine.OnCartDispatchResult(ctx, req.ID, port.CartResult{Success: true})
	assert.ErrorIs(t, err, domainwf.ErrInvalidState)
}

func TestCartResultOnNonAmazonRequest(t *testing.T) {
	f := newFixture()
	req := f.submit(t, "https://example.com/widget")
	_, err := f.engine.Approve(context.Background(), req.ID, managerID, entity.RoleGeneralManager, "")
	require.NoError(t, err)

	_, err = f.engine.OnCartDispatchResult(context.Background(), req.ID, port.CartResult{Success: true})
	assert.ErrorIs(t, err, domainwf.ErrInvalidState)
}

func TestMarkPurchased(t *testing.T) {
	t.Run("manual purchase", func(t *testing.T) {
		f := newFixture()
		req := f.submit(t, "https://example.com/widget")
		_, err := f.engine.Approve(context.Background(), req.ID, managerID, entity.RoleGeneralManager, "")
		require.NoError(t, err)

		_, err = f.engine.MarkPurchased(context.Background(), req.ID, managerID, entity.RoleGeneralManager, MarkPurchasedInput{})
		assert.ErrorIs(t, err, domainwf.ErrUnauthorized)

		got, err := f.engine.MarkPurchased(context.Background(), req.ID, adminID, entity.RoleAdmin, MarkPurchasedInput{Notes: "PO 1234"})
		require.NoError(t, err)
		assert.Equal(t, entity.StatusPurchased, got.Status)
		assert.Equal(t, "PO 1234", *got.PurchaseNotes)
		assert.Equal(t, adminID, *got.PurchasedByID)
	})

	t.Run("pending request cannot be purchased", func(t *testing.T) {
		f := newFixture()
		req := f.submit(t, "https://example.com/widget")

		_, err := f.engine.MarkPurchased(context.Background(), req.ID, adminID, entity.RoleAdmin, MarkPurchasedInput{})
		assert.ErrorIs(t, err, domainwf.ErrInvalidState)
	})

	t.Run("amazon without cart needs confirmation", func(t *testing.T) {
		f := newFixture()
		f.queue.err = port.ErrQueueClosed
		req := f.submit(t, "https://www.amazon.com/dp/B08N5WRWNW")
		_, err := f.engine.Approve(context.Background(), req.ID, managerID, entity.RoleGeneralManager, "")
		require.NoError(t, err)

		_, err = f.engine.MarkPurchased(context.Background(), req.ID, adminID, entity.RoleAdmin, MarkPurchasedInput{})
		assert.ErrorIs(t, err, domainwf.ErrValidation)

		got, err := f.engine.MarkPurchased(context.Background(), req.ID, adminID, entity.RoleAdmin, MarkPurchasedInput{ConfirmManual: true})
		require.NoError(t, err)
		assert.Equal(t, entity.StatusPurchased, got.Status)
		assert.Equal(t, "Marked as purchased", got.History[len(got.History)-1].Comment)
	})
}

func TestHistoryFailureRollsBack(t *testing.T) {
	f := newFixture()
	req := f.submit(t, "https://example.com/widget")
	f.history.createErr = errors.New("disk full")

	_, err := f.engine.Approve(context.Background(), req.ID, managerID, entity.RoleGeneralManager, "")
	require.Error(t, err)

	stored, _ := f.repo.GetByID(context.Background(), req.ID)
	assert.Equal(t, entity.StatusPending, stored.Status)
}

func TestGetStats(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mine := f.submit(t, "https://example.com/a")
	_, err := f.engine.Approve(ctx, mine.ID, managerID, entity.RoleGeneralManager, "")
	require.NoError(t, err)

	_, err = f.engine.Submit(ctx, otherUserID, entity.RoleEmployee, SubmitInput{
		URL: "https://example.com/b", Quantity: 1, Justification: "x", Urgency: entity.UrgencyUrgent,
	})
	require.NoError(t, err)

	all, err := f.engine.GetStats(ctx, entity.RoleAdmin, adminID)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)
	assert.Equal(t, 1, all.Pending)
	assert.Equal(t, 1, all.Approved)
	assert.Equal(t, 1, all.Urgent)

	own, err := f.engine.GetStats(ctx, entity.RoleEmployee, requesterID)
	require.NoError(t, err)
	assert.Equal(t, 1, own.Total)
	assert.Equal(t, 1, own.Approved)
	assert.Equal(t, 0, own.Pending)

	_, err = f.engine.GetStats(ctx, entity.Role(""), requesterID)
	assert.ErrorIs(t, err, domainwf.ErrUnauthorized)
}
