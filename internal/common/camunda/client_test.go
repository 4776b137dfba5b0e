package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"finance-agreements/internal/common/config"
	"finance-agreements/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		err  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"dial tcp: i/o timeout", true},
		{"rpc error: code = PermissionDenied", false},
		{"invalid gateway address", false},
	}

	for _, tt := range tests {
		t.Run(tt.err, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableZeebeError(errors.New(tt.err)))
		})
	}
}

func TestBackoffDelay(t *testing.T) {
	rc := &RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, backoffDelay(rc, 0))
	assert.Equal(t, 2*time.Second, backoffDelay(rc, 1))
	assert.Equal(t, 4*time.Second, backoffDelay(rc, 2))
	assert.Equal(t, 5*time.Second, backoffDelay(rc, 3))
	assert.Equal(t, 5*time.Second, backoffDelay(rc, 62))
}

func TestRetryWithBackoff(t *testing.T) {
	rc := &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	log := logger.NewTestLogger(t)

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		got, err := retryWithBackoff(context.Background(), rc, log, "op", func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("connection refused")
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on permanent error", func(t *testing.T) {
		calls := 0
		_, err := retryWithBackoff(context.Background(), rc, log, "op", func() (int, error) {
			calls++
			return 0, errors.New("permission denied")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		_, err := retryWithBackoff(context.Background(), rc, log, "op", func() (int, error) {
			calls++
			return 0, errors.New("unavailable")
		})
		require.Error(t, err)
		assert.Equal(t, rc.MaxRetries+1, calls)
		assert.Contains(t, err.Error(), "op failed")
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		slow := &RetryConfig{MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}
		_, err := retryWithBackoff(ctx, slow, log, "op", func() (int, error) {
			return 0, errors.New("timeout")
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestConfigFromApp(t *testing.T) {
	cfg := ConfigFromApp(config.CamundaConfig{BrokerAddress: "zeebe:26500", RequestTimeout: 5000})
	assert.Equal(t, "zeebe:26500", cfg.GatewayAddress)
	assert.Equal(t, 5*time.Second, cfg.ConnectionTimeout)
	assert.True(t, cfg.UsePlaintextConnection)

	cfg = ConfigFromApp(config.CamundaConfig{BrokerAddress: "zeebe:26500"})
	assert.Equal(t, 10*time.Second, cfg.ConnectionTimeout)
}
