package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"
)

// Fields are key/value pairs appended to a log line.
type Fields map[string]any

// Logger is the logging surface of the client.
type Logger interface {
	Debug(ctx context.Context, msg string, fields Fields)
	Info(ctx context.Context, msg string, fields Fields)
	Warn(ctx context.Context, msg string, fields Fields)
	Error(ctx context.Context, err error, fields Fields)
}

type logxLogger struct{}

// NewLogger returns a logx-backed Logger. An empty or unknown level keeps
// the process-wide logx level.
func NewLogger(level string) Logger {
	if lvl, ok := parseLevel(level); ok {
		logx.SetLevel(lvl)
	}
	return logxLogger{}
}

func (logxLogger) Debug(ctx context.Context, msg string, fields Fields) {
	logx.WithContext(ctx).Debug(withFields(msg, fields))
}

func (logxLogger) Info(ctx context.Context, msg string, fields Fields) {
	logx.WithContext(ctx).Info(withFields(msg, fields))
}

func (logxLogger) Warn(ctx context.Context, msg string, fields Fields) {
	logx.WithContext(ctx).Slow(withFields(msg, fields))
}

func (logxLogger) Error(ctx context.Context, err error, fields Fields) {
	logx.WithContext(ctx).Error(withFields(err.Error(), fields))
}

func parseLevel(level string) (uint32, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logx.DebugLevel, true
	case "info":
		return logx.InfoLevel, true
	case "error":
		return logx.ErrorLevel, true
	case "severe", "fatal":
		return logx.SevereLevel, true
	}
	return 0, false
}

func withFields(msg string, fields Fields) string {
	if len(fields) == 0 {
		return msg
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, fields[k])
	}
	return msg + " | " + strings.Join(parts, " ")
}
