package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
)

func TestLogBroadcaster_DeliversEntries(t *testing.T) {
	broadcaster := NewLogBroadcaster(zapcore.InfoLevel)
	logger := zap.New(broadcaster.Core()).Named("pipeline")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := broadcaster.Subscribe(ctx)

	logger.Info("request completed", zap.String("tool", "property_list"))

	select {
	case entry := <-ch:
		require.Equal(t, "pipeline", entry.Logger)
		require.Equal(t, domain.LogLevelInfo, entry.Level)
		require.Contains(t, string(entry.DataJSON), "request completed")
		require.Contains(t, string(entry.DataJSON), "property_list")
	case <-time.After(time.Second):
		t.Fatal("no entry delivered")
	}
}

func TestLogBroadcaster_RedactsSensitiveFields(t *testing.T) {
	broadcaster := NewLogBroadcaster(zapcore.InfoLevel)
	logger := zap.New(broadcaster.Core())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := broadcaster.Subscribe(ctx)

	logger.Info("session opened",
		zap.String("client_token", "akab-client-token"),
		zap.String("account", "acme"),
	)

	select {
	case entry := <-ch:
		require.NotContains(t, string(entry.DataJSON), "akab-client-token")
		require.Contains(t, string(entry.DataJSON), `"client_token":"***"`)
		require.Contains(t, string(entry.DataJSON), "acme")
	case <-time.After(time.Second):
		t.Fatal("no entry delivered")
	}
}

func TestLogBroadcaster_FiltersBelowMinLevel(t *testing.T) {
	broadcaster := NewLogBroadcaster(zapcore.WarnLevel)
	logger := zap.New(broadcaster.Core())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := broadcaster.Subscribe(ctx)

	logger.Info("should be dropped")
	logger.Warn("should arrive")

	select {
	case entry := <-ch:
		require.Equal(t, domain.LogLevelWarning, entry.Level)
	case <-time.After(time.Second):
		t.Fatal("no entry delivered")
	}
	select {
	case entry := <-ch:
		t.Fatalf("unexpected extra entry: %s", entry.DataJSON)
	default:
	}
}

func TestLogBroadcaster_UnsubscribeOnContextCancel(t *testing.T) {
	broadcaster := NewLogBroadcaster(zapcore.DebugLevel)
	logger := zap.New(broadcaster.Core())

	ctx, cancel := context.WithCancel(context.Background())
	ch := broadcaster.Subscribe(ctx)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, open := <-ch:
			return !open
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	// Publishing after unsubscribe must not panic.
	logger.Info("after unsubscribe")
}

func TestLogBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	broadcaster := NewLogBroadcaster(zapcore.DebugLevel)
	logger := zap.New(broadcaster.Core())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = broadcaster.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		for i := 0; i < DefaultLogBufferSize*2; i++ {
			logger.Info("burst")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
