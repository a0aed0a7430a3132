package mqhandler

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "freelancehub/contracts/mq"
	"freelancehub/internal/model"
	"freelancehub/internal/repository/memory"
	"freelancehub/pkg/mq"
)

type fakeDeduper struct {
	mu       sync.Mutex
	seen     map[string]bool
	released []string
}

func newFakeDeduper() *fakeDeduper { return &fakeDeduper{seen: map[string]bool{}} }

func (d *fakeDeduper) AcquireOnce(_ context.Context, handler, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := handler + ":" + key
	if d.seen[k] {
		return false
	}
	d.seen[k] = true
	return true
}

func (d *fakeDeduper) Release(_ context.Context, handler, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, handler+":"+key)
	d.released = append(d.released, key)
}

type failingNotifications struct {
	err error
}

func (f failingNotifications) Create(context.Context, *model.Notification) error { return f.err }
func (f failingNotifications) ListByRecipient(context.Context, int64, bool, int, int) ([]model.Notification, int, error) {
	return nil, 0, nil
}
func (f failingNotifications) CountUnread(context.Context, int64) (int, error) { return 0, nil }
func (f failingNotifications) MarkRead(context.Context, int64, int64) error { return nil }
func (f failingNotifications) MarkAllRead(context.Context, int64) (int64, error) {
	return 0, nil
}

func newRouter(t *testing.T, store *memory.Store, deduper Deduper) *mq.Router {
	t.Helper()
	router := mq.NewRouter(zap.NewNop())
	RegisterHandlers(router,
		NewNotificationHandler(store.Notifications(), deduper, zap.NewNop()),
		NewUserRegisteredHandler("http://localhost:8080/api/auth/verify", zap.NewNop()),
	)
	return router
}

func envelope(t *testing.T, eventType string, payload any) (mq.Event, json.RawMessage) {
	t.Helper()
	evt, err := mq.NewEvent(eventType, payload)
	require.NoError(t, err)
	raw, err := json.Marshal(evt)
	require.NoError(t, err)
	return evt, raw
}

func TestNotificationHandlerCreatesNotification(t *testing.T) {
	store := memory.New()
	router := newRouter(t, store, nil)
	ctx := context.Background()

	_, raw := envelope(t, mqcontracts.EventPaymentReleased, mqcontracts.PaymentReleasedPayload{
		Notify:      mqcontracts.Notify{RecipientID: 2, SenderID: 1, ContractID: 9, Message: "Payment released"},
		MilestoneID: 4,
		Amount:      250,
	})
	require.NoError(t, router.Handle(ctx, raw))

	items, total, err := store.Notifications().ListByRecipient(ctx, 2, false, 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, model.NotificationPaymentReleased, items[0].Type)
	assert.Equal(t, int64(1), items[0].SenderID)
	require.NotNil(t, items[0].ContractID)
	assert.Equal(t, int64(9), *items[0].ContractID)
	assert.Nil(t, items[0].JobID)
	assert.False(t, items[0].IsRead)
}

func TestNotificationHandlerIgnoresRedelivery(t *testing.T) {
	ctx := context.Background()
	payload := mqcontracts.MessageSentPayload{
		Notify:    mqcontracts.Notify{RecipientID: 3, SenderID: 1, Message: "New message"},
		MessageID: 11,
	}

	t.Run("deduper", func(t *testing.T) {
		store := memory.New()
		dedup := newFakeDeduper()
		router := newRouter(t, store, dedup)
		_, raw := envelope(t, mqcontracts.EventMessageSent, payload)

		require.NoError(t, router.Handle(ctx, raw))
		require.NoError(t, router.Handle(ctx, raw))

		_, total, err := store.Notifications().ListByRecipient(ctx, 3, false, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
	})

	t.Run("event id without deduper", func(t *testing.T) {
		store := memory.New()
		router := newRouter(t, store, nil)
		_, raw := envelope(t, mqcontracts.EventMessageSent, payload)

		require.NoError(t, router.Handle(ctx, raw))
		require.NoError(t, router.Handle(ctx, raw))

		_, total, err := store.Notifications().ListByRecipient(ctx, 3, false, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
	})
}

func TestNotificationHandlerAcksInvalidPayloads(t *testing.T) {
	store := memory.New()
	router := newRouter(t, store, nil)
	ctx := context.Background()

	_, noRecipient := envelope(t, mqcontracts.EventContractCreated, mqcontracts.ContractCreatedPayload{})
	assert.NoError(t, router.Handle(ctx, noRecipient))

	evt := mq.Event{ID: "bad-data", Type: mqcontracts.EventContractCreated, Data: json.RawMessage(`"not an object"`)}
	raw, err := json.Marshal(evt)
	require.NoError(t, err)
	assert.NoError(t, router.Handle(ctx, raw))

	_, total, err := store.Notifications().ListByRecipient(ctx, 0, false, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestNotificationHandlerRetryableFailureReleasesKey(t *testing.T) {
	dedup := newFakeDeduper()
	h := NewNotificationHandler(failingNotifications{err: context.DeadlineExceeded}, dedup, zap.NewNop())
	router := mq.NewRouter(zap.NewNop())
	router.Register(mqcontracts.EventMessageSent, h.Handle)

	evt, raw := envelope(t, mqcontracts.EventMessageSent, mqcontracts.MessageSentPayload{
		Notify: mqcontracts.Notify{RecipientID: 5, SenderID: 1},
	})
	err := router.Handle(context.Background(), raw)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{evt.ID + ":5"}, dedup.released)
}

func TestNotificationHandlerAcksPermanentFailure(t *testing.T) {
	dedup := newFakeDeduper()
	h := NewNotificationHandler(failingNotifications{err: context.Canceled}, dedup, zap.NewNop())
	router := mq.NewRouter(zap.NewNop())
	router.Register(mqcontracts.EventMessageSent, h.Handle)

	_, raw := envelope(t, mqcontracts.EventMessageSent, mqcontracts.MessageSentPayload{
		Notify: mqcontracts.Notify{RecipientID: 5, SenderID: 1},
	})
	assert.NoError(t, router.Handle(context.Background(), raw))
	assert.Empty(t, dedup.released)
}

func TestRegisterHandlersBindsEveryNotifyingEvent(t *testing.T) {
	router := newRouter(t, memory.New(), nil)
	expected := append([]string{mqcontracts.EventUserRegistered}, mqcontracts.NotificationEvents...)
	assert.ElementsMatch(t, expected, router.Types())
}

func TestUserRegisteredHandlerAcksBadPayload(t *testing.T) {
	h := NewUserRegisteredHandler("http://localhost/verify", zap.NewNop())
	assert.NoError(t, h.Handle(context.Background(), json.RawMessage(`[]`)))
	assert.NoError(t, h.Handle(context.Background(), json.RawMessage(`{"user_id":1,"verification_token":"abc"}`)))
}
