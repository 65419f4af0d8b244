package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
)

// startLogSink begins forwarding broadcast records to connected sessions.
// Safe to call from either transport entry point; only the first call wins.
func (b *Bridge) startLogSink(ctx context.Context) {
	if b.broadcaster == nil {
		return
	}
	b.sinkOnce.Do(func() {
		go b.forwardLogs(ctx)
	})
}

func (b *Bridge) forwardLogs(ctx context.Context) {
	for entry := range b.broadcaster.Subscribe(ctx) {
		b.publishLog(ctx, loggingParams(entry))
	}
}

func (b *Bridge) fanOutLog(ctx context.Context, params *mcp.LoggingMessageParams) {
	for session := range b.server.Sessions() {
		_ = session.Log(ctx, params)
	}
}

func loggingParams(entry domain.LogEntry) *mcp.LoggingMessageParams {
	return &mcp.LoggingMessageParams{
		Logger: entry.Logger,
		Level:  mcp.LoggingLevel(entry.Level),
		Data:   json.RawMessage(entry.DataJSON),
	}
}
