package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
)

// billingRepoMock lives here instead of internal/mocks because mocks already
// imports this package for the provider types.
type billingRepoMock struct {
	mock.Mock
}

func (m *billingRepoMock) RecordEvent(ctx context.Context, providerEventID, eventType string) (bool, error) {
	args := m.Called(ctx, providerEventID, eventType)
	return args.Bool(0), args.Error(1)
}

func (m *billingRepoMock) UpsertSubscription(ctx context.Context, sub models.Subscription) (models.Subscription, error) {
	args := m.Called(ctx, sub)
	var out models.Subscription
	if val := args.Get(0); val != nil {
		out = val.(models.Subscription)
	}
	return out, args.Error(1)
}

func (m *billingRepoMock) GetSubscriptionForUser(ctx context.Context, userID int64) (models.Subscription, error) {
	args := m.Called(ctx, userID)
	var out models.Subscription
	if val := args.Get(0); val != nil {
		out = val.(models.Subscription)
	}
	return out, args.Error(1)
}

const webhookSecret = "whsec_test"

func TestVerifySignatureRoundTrip(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := Sign(payload, webhookSecret, time.Now())

	require.NoError(t, VerifySignature(payload, header, webhookSecret, DefaultTolerance))
}

func TestVerifySignatureWrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := Sign(payload, "whsec_other", time.Now())

	require.ErrorIs(t, VerifySignature(payload, header, webhookSecret, DefaultTolerance), ErrInvalidSignature)
}

func TestVerifySignatureTamperedPayload(t *testing.T) {
	header := Sign([]byte(`{"id":"evt_1"}`), webhookSecret, time.Now())

	require.ErrorIs(t, VerifySignature([]byte(`{"id":"evt_2"}`), header, webhookSecret, DefaultTolerance), ErrInvalidSignature)
}

func TestVerifySignatureStaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := Sign(payload, webhookSecret, time.Now().Add(-10*time.Minute))

	require.ErrorIs(t, VerifySignature(payload, header, webhookSecret, DefaultTolerance), ErrSignatureExpired)
}

func TestVerifySignatureStaleTimestampWrongSecret(t *testing.T) {
	// A stale timestamp must not mask a signature mismatch.
	payload := []byte(`{"id":"evt_1"}`)
	header := Sign(payload, "whsec_other", time.Now().Add(-10*time.Minute))

	require.ErrorIs(t, VerifySignature(payload, header, webhookSecret, DefaultTolerance), ErrInvalidSignature)
}

func TestVerifySignatureMalformedHeader(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)

	for _, header := range []string{"", "t=123", "v1=abcd", "t=notanumber,v1=abcd", "t=123,v1=zz"} {
		require.ErrorIs(t, VerifySignature(payload, header, webhookSecret, DefaultTolerance), ErrInvalidSignature, "header %q", header)
	}
}

func TestHandleEventUpsertsSubscription(t *testing.T) {
	repo := new(billingRepoMock)
	syncer := NewSyncer(repo)

	ev := Event{ID: "evt_1", Type: "customer.subscription.created"}
	ev.Data.Subscription = SubscriptionObject{
		ID:               "sub_1",
		CustomerRef:      "user_7",
		UserID:           7,
		Status:           "active",
		CurrentPeriodEnd: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC).Unix(),
	}

	repo.On("RecordEvent", mock.Anything, "evt_1", "customer.subscription.created").Return(true, nil).Once()
	repo.On("UpsertSubscription", mock.Anything, mock.MatchedBy(func(sub models.Subscription) bool {
		return sub.UserID == 7 &&
			sub.ProviderSubscriptionID == "sub_1" &&
			sub.Status == "active" &&
			sub.CurrentPeriodEnd.Valid
	})).Return(models.Subscription{ID: 1}, nil).Once()

	require.NoError(t, syncer.HandleEvent(context.Background(), ev))
	repo.AssertExpectations(t)
}

func TestHandleEventReplaySkipsUpsert(t *testing.T) {
	repo := new(billingRepoMock)
	syncer := NewSyncer(repo)

	ev := Event{ID: "evt_1", Type: "customer.subscription.updated"}
	ev.Data.Subscription = SubscriptionObject{ID: "sub_1", UserID: 7, Status: "active"}

	repo.On("RecordEvent", mock.Anything, "evt_1", "customer.subscription.updated").Return(false, nil).Once()

	require.NoError(t, syncer.HandleEvent(context.Background(), ev))
	repo.AssertNotCalled(t, "UpsertSubscription", mock.Anything, mock.Anything)
}

func TestHandleEventDeletedForcesCanceledStatus(t *testing.T) {
	repo := new(billingRepoMock)
	syncer := NewSyncer(repo)

	ev := Event{ID: "evt_2", Type: "customer.subscription.deleted"}
	ev.Data.Subscription = SubscriptionObject{ID: "sub_1", UserID: 7, Status: "active"}

	repo.On("RecordEvent", mock.Anything, "evt_2", "customer.subscription.deleted").Return(true, nil).Once()
	repo.On("UpsertSubscription", mock.Anything, mock.MatchedBy(func(sub models.Subscription) bool {
		return sub.Status == "canceled"
	})).Return(models.Subscription{}, nil).Once()

	require.NoError(t, syncer.HandleEvent(context.Background(), ev))
	repo.AssertExpectations(t)
}

func TestHandleEventUnknownTypeAcknowledged(t *testing.T) {
	repo := new(billingRepoMock)
	syncer := NewSyncer(repo)

	repo.On("RecordEvent", mock.Anything, "evt_3", "invoice.paid").Return(true, nil).Once()

	require.NoError(t, syncer.HandleEvent(context.Background(), Event{ID: "evt_3", Type: "invoice.paid"}))
	repo.AssertNotCalled(t, "UpsertSubscription", mock.Anything, mock.Anything)
}

func TestHandleEventRejectsEmptyID(t *testing.T) {
	syncer := NewSyncer(new(billingRepoMock))

	require.Error(t, syncer.HandleEvent(context.Background(), Event{Type: "customer.subscription.created"}))
}

func TestHandleEventIncompleteSubscription(t *testing.T) {
	repo := new(billingRepoMock)
	syncer := NewSyncer(repo)

	repo.On("RecordEvent", mock.Anything, "evt_4", "customer.subscription.created").Return(true, nil).Once()

	err := syncer.HandleEvent(context.Background(), Event{ID: "evt_4", Type: "customer.subscription.created"})
	require.Error(t, err)
	repo.AssertNotCalled(t, "UpsertSubscription", mock.Anything, mock.Anything)
}

func TestParseEvent(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"customer.subscription.created","data":{"subscription":{"id":"sub_1","customer_ref":"user_7","user_id":"7","status":"active","current_period_end":1756684800}}}`)

	ev, err := ParseEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, int64(7), ev.Data.Subscription.UserID)
	assert.Equal(t, "active", ev.Data.Subscription.Status)
}
