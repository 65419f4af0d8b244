package app

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/telemetry"
)

// Logging bundles the process logger and the broadcaster that feeds MCP
// notifications/message to connected sessions.
type Logging struct {
	Logger      *zap.Logger
	Broadcaster *telemetry.LogBroadcaster
}

// NewLogging builds the zap logger described by the log config. Output
// always goes to stderr: on the stdio transport stdout belongs to the
// protocol stream. The logger is teed into a broadcaster so sessions can
// subscribe to server logs without a second sink; only WARN and above
// cross into the broadcaster.
func NewLogging(cfg domain.LogConfig) (Logging, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return Logging{}, fmt.Errorf("app: parse log level %q: %w", cfg.Level, err)
	}

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "console":
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	default:
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	logs := telemetry.NewLogBroadcaster(zapcore.WarnLevel)
	logger := zap.New(core).WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, logs.Core())
	}))

	return Logging{
		Logger:      logger,
		Broadcaster: logs,
	}, nil
}

// NewLogger returns the logger from a Logging bundle.
func NewLogger(logging Logging) *zap.Logger {
	return logging.Logger
}

// NewLogBroadcaster returns the broadcaster from a Logging bundle.
func NewLogBroadcaster(logging Logging) *telemetry.LogBroadcaster {
	return logging.Broadcaster
}
