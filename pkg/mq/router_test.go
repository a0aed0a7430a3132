package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRouterDispatchesByType(t *testing.T) {
	r := NewRouter(zap.NewNop())

	var gotID string
	var gotData map[string]int
	r.Register("milestone.submitted", func(ctx context.Context, data json.RawMessage) error {
		evt, ok := EventFromContext(ctx)
		require.True(t, ok)
		gotID = evt.ID
		return json.Unmarshal(data, &gotData)
	})

	evt, err := NewEvent("milestone.submitted", map[string]int{"contract_id": 7})
	require.NoError(t, err)
	raw, err := json.Marshal(evt)
	require.NoError(t, err)

	require.NoError(t, r.Handle(context.Background(), raw))
	assert.Equal(t, evt.ID, gotID)
	assert.Equal(t, 7, gotData["contract_id"])
	assert.Equal(t, []string{"milestone.submitted"}, r.Types())
}

func TestRouterIgnoresUnknownType(t *testing.T) {
	r := NewRouter(zap.NewNop())
	raw, _ := json.Marshal(Event{ID: "1", Type: "unknown"})
	assert.NoError(t, r.Handle(context.Background(), raw))
}

func TestRouterPropagatesHandlerError(t *testing.T) {
	r := NewRouter(zap.NewNop())
	boom := errors.New("boom")
	r.Register("x", func(context.Context, json.RawMessage) error { return boom })
	raw, _ := json.Marshal(Event{ID: "1", Type: "x"})
	assert.ErrorIs(t, r.Handle(context.Background(), raw), boom)
}

func TestRouterRejectsBadEnvelope(t *testing.T) {
	r := NewRouter(zap.NewNop())
	assert.Error(t, r.Handle(context.Background(), json.RawMessage(`{`)))
}

func TestLocalPublisherDeliversThroughRouter(t *testing.T) {
	r := NewRouter(zap.NewNop())
	var got string
	r.Register("message.sent", func(ctx context.Context, data json.RawMessage) error {
		evt, ok := EventFromContext(ctx)
		require.True(t, ok)
		got = evt.ID
		return nil
	})

	evt, err := NewEvent("message.sent", map[string]int64{"message_id": 7})
	require.NoError(t, err)

	require.NoError(t, NewLocalPublisher(r.Handle).PublishWithContext(context.Background(), evt.Type, evt))
	assert.Equal(t, evt.ID, got)
}
