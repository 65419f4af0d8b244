package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
)

const shutdownGrace = 5 * time.Second

// Run serves the stdio transport until ctx is canceled.
func (b *Bridge) Run(ctx context.Context) error {
	b.startLogSink(ctx)
	b.logger.Info("mcp server starting",
		zap.String("transport", domain.TransportStdio),
		zap.Int("tools", b.tools),
	)
	return b.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is
// canceled, then drains connections within the shutdown grace period.
func (b *Bridge) RunHTTP(ctx context.Context, addr string) error {
	if addr == "" {
		return errors.New("mcpserver: listen address is required")
	}
	b.startLogSink(ctx)

	server := &http.Server{
		Addr:    addr,
		Handler: b.HTTPHandler(),
	}

	errChan := make(chan error, 1)
	go func() {
		b.logger.Info("mcp server listening",
			zap.String("transport", domain.TransportHTTP),
			zap.String("addr", server.Addr),
			zap.Int("tools", b.tools),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("mcp http server failed to start: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			b.logger.Error("mcp http server shutdown error", zap.Error(err))
			return err
		}
		b.logger.Info("mcp server stopped")
		return nil
	}
}

// HTTPHandler returns the streamable endpoint for callers that mount it
// on their own mux.
func (b *Bridge) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return b.server
	}, &mcp.StreamableHTTPOptions{JSONResponse: true})
}
