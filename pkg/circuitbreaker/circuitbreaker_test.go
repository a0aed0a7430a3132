package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBroker = errors.New("broker down")

func newTestBreaker(clock *time.Time) *CircuitBreaker {
	cb := New(Config{FailureThreshold: 2, SuccessThreshold: 1, OpenTimeout: time.Minute, HalfOpenMaxRequests: 1})
	cb.now = func() time.Time { return *clock }
	return cb
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	clock := time.Unix(0, 0)
	cb := newTestBreaker(&clock)

	assert.ErrorIs(t, cb.Execute(func() error { return errBroker }), errBroker)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return errBroker }), errBroker)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreakerHalfOpenRecovers(t *testing.T) {
	clock := time.Unix(0, 0)
	cb := newTestBreaker(&clock)
	_ = cb.Execute(func() error { return errBroker })
	_ = cb.Execute(func() error { return errBroker })

	clock = clock.Add(2 * time.Minute)
	assert.Equal(t, StateHalfOpen, cb.State())

	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := time.Unix(0, 0)
	var transitions []string
	cb := newTestBreaker(&clock)
	cb.cfg.OnStateChange = func(from, to State) { transitions = append(transitions, from.String()+">"+to.String()) }

	_ = cb.Execute(func() error { return errBroker })
	_ = cb.Execute(func() error { return errBroker })
	clock = clock.Add(2 * time.Minute)
	_ = cb.Execute(func() error { return errBroker })

	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, []string{"closed>open", "open>half_open", "half_open>open"}, transitions)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	clock := time.Unix(0, 0)
	cb := newTestBreaker(&clock)
	_ = cb.Execute(func() error { return errBroker })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errBroker })
	assert.Equal(t, StateClosed, cb.State())
}

func TestResetClosesOpenBreaker(t *testing.T) {
	clock := time.Unix(0, 0)
	cb := newTestBreaker(&clock)
	var changes []State
	cb.cfg.OnStateChange = func(_, to State) { changes = append(changes, to) }

	_ = cb.Execute(func() error { return errBroker })
	_ = cb.Execute(func() error { return errBroker })
	assert.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, []State{StateOpen, StateClosed}, changes)
}
