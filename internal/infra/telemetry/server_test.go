package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStartHTTPServer_Metrics(t *testing.T) {
	listener := mustListen(t)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	registry := prometheus.NewRegistry()
	NewPrometheusMetrics(registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- StartHTTPServer(ctx, HTTPServerOptions{
			Addr:          fmt.Sprintf("127.0.0.1:%d", port),
			EnableMetrics: true,
			Registry:      registry,
		}, zap.NewNop())
	}()

	waitForHTTPStatus(t, fmt.Sprintf("http://127.0.0.1:%d/metrics", port), http.StatusOK, false)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", port))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "alecs_inflight_requests")

	cancel()
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop in time")
	}
}

func TestStartHTTPServer_Healthz(t *testing.T) {
	listener := mustListen(t)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracker := NewHealthTracker()
	beat := tracker.Register("test-loop", 200*time.Millisecond)

	errChan := make(chan error, 1)
	go func() {
		errChan <- StartHTTPServer(ctx, HTTPServerOptions{
			Addr:          fmt.Sprintf("127.0.0.1:%d", port),
			EnableHealthz: true,
			Health:        tracker,
		}, zap.NewNop())
	}()

	beat.Beat()
	waitForHTTPStatus(t, fmt.Sprintf("http://127.0.0.1:%d/healthz", port), http.StatusOK, true)
	waitForHTTPStatus(t, fmt.Sprintf("http://127.0.0.1:%d/healthz", port), http.StatusServiceUnavailable, true)

	cancel()
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop in time")
	}
}

func TestStartHTTPServer_Readyz(t *testing.T) {
	listener := mustListen(t)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracker := NewHealthTracker()

	errChan := make(chan error, 1)
	go func() {
		errChan <- StartHTTPServer(ctx, HTTPServerOptions{
			Addr:          fmt.Sprintf("127.0.0.1:%d", port),
			EnableHealthz: true,
			Health:        tracker,
		}, zap.NewNop())
	}()

	waitForHTTPStatus(t, fmt.Sprintf("http://127.0.0.1:%d/readyz", port), http.StatusServiceUnavailable, false)

	tracker.SetReady(true)
	waitForHTTPStatus(t, fmt.Sprintf("http://127.0.0.1:%d/readyz", port), http.StatusOK, false)

	tracker.SetReady(false)
	waitForHTTPStatus(t, fmt.Sprintf("http://127.0.0.1:%d/readyz", port), http.StatusServiceUnavailable, false)

	cancel()
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop in time")
	}
}

func TestStartHTTPServer_NothingEnabled(t *testing.T) {
	err := StartHTTPServer(context.Background(), HTTPServerOptions{}, zap.NewNop())
	require.NoError(t, err)
}

func mustListen(t *testing.T) net.Listener {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skip test due to listen error: %v", err)
	}
	return listener
}

func waitForHTTPStatus(t *testing.T, url string, status int, expectJSON bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if resp.StatusCode != status {
			return false
		}
		if expectJSON {
			var report HealthReport
			if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
				return false
			}
			if status == http.StatusOK && report.Status != "ok" {
				return false
			}
		}
		return true
	}, 2*time.Second, 25*time.Millisecond)
}
