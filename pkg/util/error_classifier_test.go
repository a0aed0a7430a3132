package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryableError(t *testing.T) {
	var syntaxErr error
	{
		var v map[string]any
		syntaxErr = json.Unmarshal([]byte("{"), &v)
	}

	cases := []struct {
		name      string
		err       error
		retryable bool
		kind      string
	}{
		{"nil", nil, false, ""},
		{"json syntax", syntaxErr, false, "json_decode_error"},
		{"no rows", fmt.Errorf("load contract: %w", pgx.ErrNoRows), false, "not_found"},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false, "duplicate_key"},
		{"fk violation", &pgconn.PgError{Code: "23503"}, false, "constraint_violation"},
		{"serialization", &pgconn.PgError{Code: "40001"}, true, "serialization_failure"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"deadline", fmt.Errorf("insert: %w", context.DeadlineExceeded), true, "timeout"},
		{"connection refused text", errors.New("dial tcp: connection refused"), true, "db_connection_error"},
		{"unknown", errors.New("something odd"), false, "unknown_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			retryable, kind := IsRetryableError(tc.err)
			assert.Equal(t, tc.retryable, retryable)
			assert.Equal(t, tc.kind, kind)
		})
	}
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, ShouldRetry(1, 3, true))
	assert.True(t, ShouldRetry(3, 3, true))
	assert.False(t, ShouldRetry(4, 3, true))
	assert.False(t, ShouldRetry(1, 3, false))
}
