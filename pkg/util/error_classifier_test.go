package util

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryableError(t *testing.T) {
	jsonErr := json.Unmarshal([]byte("{"), &struct{}{})

	tests := []struct {
		name          string
		err           error
		wantRetryable bool
		wantType      string
	}{
		{"nil error", nil, false, ""},
		{"json syntax error", jsonErr, false, "json_decode_error"},
		{"no rows", pgx.ErrNoRows, false, "row_not_found"},
		{"duplicate key", errors.New(`duplicate key value violates unique constraint "votes_pkey"`), false, "duplicate_key"},
		{"db connection refused", errors.New("connection refused"), true, "db_connection_error"},
		{"network timeout", &net.DNSError{IsTimeout: true}, true, "network_timeout"},
		{"deadline exceeded", context.DeadlineExceeded, true, "timeout"},
		{"context canceled", context.Canceled, false, "context_canceled"},
		{"webhook 5xx", errors.New("webhook returned status 503"), true, "webhook_error"},
		{"webhook unreachable", errors.New("failed to deliver webhook: dial refused"), true, "webhook_unavailable"},
		{"unknown", errors.New("boom"), false, "unknown_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, errType := IsRetryableError(tt.err)
			assert.Equal(t, tt.wantRetryable, retryable)
			assert.Equal(t, tt.wantType, errType)
		})
	}
}

func TestShouldRetry(t *testing.T) {
	assert.False(t, ShouldRetry(1, 5, false))
	assert.True(t, ShouldRetry(1, 5, true))
	assert.True(t, ShouldRetry(5, 5, true))
	assert.False(t, ShouldRetry(6, 5, true))
}
