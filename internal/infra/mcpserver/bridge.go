// Package mcpserver exposes the frozen tool registry over the Model
// Context Protocol. Every call funnels through the execution pipeline,
// so the SDK only ever sees envelopes, never raw handler errors.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/pipeline"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/registry"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/telemetry"
)

// Executor runs one tool request to its terminal envelope.
type Executor interface {
	Execute(ctx context.Context, req pipeline.Request) domain.Envelope
}

type Options struct {
	Name     string
	Version  string
	Registry *registry.Registry
	Executor Executor

	// Broadcaster is optional; when set, WARN+ records are forwarded to
	// connected sessions as notifications/message.
	Broadcaster *telemetry.LogBroadcaster

	Logger *zap.Logger
}

// Bridge owns the mcp.Server built from the registry and serves it over
// one of the supported transports.
type Bridge struct {
	server      *mcp.Server
	executor    Executor
	broadcaster *telemetry.LogBroadcaster
	logger      *zap.Logger
	tools       int

	sinkOnce   sync.Once
	publishLog func(ctx context.Context, params *mcp.LoggingMessageParams)
}

func NewBridge(opts Options) (*Bridge, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("mcpserver: registry is required")
	}
	if opts.Executor == nil {
		return nil, fmt.Errorf("mcpserver: executor is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	name := opts.Name
	if name == "" {
		name = domain.DefaultServerName
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, &mcp.ServerOptions{
		HasTools: true,
	})

	b := &Bridge{
		server:      server,
		executor:    opts.Executor,
		broadcaster: opts.Broadcaster,
		logger:      logger.Named("mcp"),
	}
	b.publishLog = b.fanOutLog

	server.AddReceivingMiddleware(methodLoggingMiddleware(b.logger))

	for _, def := range opts.Registry.List() {
		if !isObjectSchema(def.InputSchema) {
			return nil, fmt.Errorf("mcpserver: tool %s: input schema must be an object", def.Name)
		}
		tool := toolFromDefinition(def)
		server.AddTool(&tool, b.toolHandler(def.Name))
		b.tools++
	}

	return b, nil
}

// Server exposes the underlying mcp.Server for in-process session wiring.
func (b *Bridge) Server() *mcp.Server {
	return b.server
}

func (b *Bridge) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := json.RawMessage(req.Params.Arguments)
		envelope := b.executor.Execute(ctx, pipeline.Request{
			Tool:    name,
			RawArgs: args,
			Account: accountFromArgs(args),
		})
		return b.resultFromEnvelope(envelope), nil
	}
}

// accountFromArgs peels the optional account selector out of the raw
// arguments. Malformed JSON is left for the validator to report.
func accountFromArgs(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var probe struct {
		Account string `json:"account"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.Account
}

func (b *Bridge) resultFromEnvelope(envelope domain.Envelope) *mcp.CallToolResult {
	payload, err := json.Marshal(envelope)
	if err != nil {
		b.logger.Error("envelope marshal failed", zap.String("tool", envelope.Meta.Tool), zap.Error(err))
		envelope = domain.Fail(
			domain.E(domain.CodeInternal, "mcpserver.result", "response serialization failed", err),
			envelope.Meta,
		)
		payload, _ = json.Marshal(envelope)
	}
	return &mcp.CallToolResult{
		IsError:           envelope.Failed(),
		Content:           []mcp.Content{&mcp.TextContent{Text: string(payload)}},
		StructuredContent: envelope,
	}
}

func toolFromDefinition(def domain.ToolDefinition) mcp.Tool {
	tool := mcp.Tool{
		Name:        def.Name,
		Description: def.Description,
		InputSchema: def.InputSchema,
		Annotations: annotationsToMCP(def.Annotations),
	}
	if def.Deprecated != "" {
		tool.Meta = mcp.Meta{"deprecated": def.Deprecated}
	}
	return tool
}

func annotationsToMCP(ann *domain.ToolAnnotations) *mcp.ToolAnnotations {
	if ann == nil {
		return nil
	}
	out := mcp.ToolAnnotations{
		Title:          ann.Title,
		ReadOnlyHint:   ann.ReadOnlyHint,
		IdempotentHint: ann.IdempotentHint,
	}
	if ann.DestructiveHint != nil {
		val := *ann.DestructiveHint
		out.DestructiveHint = &val
	}
	return &out
}

func isObjectSchema(schema any) bool {
	if schema == nil {
		return false
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return false
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	typ, ok := obj["type"].(string)
	return ok && strings.EqualFold(typ, "object")
}

func methodLoggingMiddleware(logger *zap.Logger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			start := time.Now()
			result, err := next(ctx, method, req)
			if err != nil {
				logger.Warn("protocol request failed",
					zap.String("method", method),
					telemetry.DurationField(time.Since(start)),
					zap.Error(err),
				)
				return result, err
			}
			logger.Debug("protocol request handled",
				zap.String("method", method),
				telemetry.DurationField(time.Since(start)),
			)
			return result, err
		}
	}
}
