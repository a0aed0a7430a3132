package outbox

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freelancehub/pkg/mq"
)

func TestFromEnvelopeKeepsEventIdentity(t *testing.T) {
	evt, err := mq.NewEvent("payment.released", map[string]float64{"amount": 250})
	require.NoError(t, err)

	e, err := FromEnvelope("contract", 12, evt)
	require.NoError(t, err)
	assert.Equal(t, "payment.released", e.RoutingKey)
	assert.Equal(t, StatusPending, e.Status)
	require.NotNil(t, e.AggregateID)
	assert.Equal(t, int64(12), *e.AggregateID)

	var stored mq.Event
	require.NoError(t, json.Unmarshal(e.Payload, &stored))
	assert.Equal(t, evt.ID, stored.ID)
	assert.JSONEq(t, `{"amount":250}`, string(stored.Data))
}

func TestFromEnvelopeRejectsUntypedEvents(t *testing.T) {
	_, err := FromEnvelope("user", 1, mq.Event{ID: "x"})
	assert.Error(t, err)

	e, err := FromEnvelope("system", 0, mq.Event{ID: "y", Type: "user.registered"})
	require.NoError(t, err)
	assert.Nil(t, e.AggregateID)
}
