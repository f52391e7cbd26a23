package logger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type testHandler struct {
	mu   sync.Mutex
	logs *[]string
}

func (h *testHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *testHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var sb strings.Builder
	sb.WriteString(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		sb.WriteString(" ")
		sb.WriteString(a.Key)
		sb.WriteString("=")
		sb.WriteString(a.Value.String())
		return true
	})
	*h.logs = append(*h.logs, sb.String())
	return nil
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &withAttrsHandler{parent: h, attrs: attrs}
}

func (h *testHandler) WithGroup(_ string) slog.Handler { return h }

type withAttrsHandler struct {
	parent slog.Handler
	attrs  []slog.Attr
}

func (h *withAttrsHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.parent.Enabled(ctx, l)
}

func (h *withAttrsHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.attrs...)
	return h.parent.Handle(ctx, r)
}

func (h *withAttrsHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &withAttrsHandler{parent: h, attrs: append(h.attrs, attrs...)}
}

func (h *withAttrsHandler) WithGroup(_ string) slog.Handler { return h }

func TestNew_Success(t *testing.T) {
	logger := New("test-package")

	assert.NotNil(t, logger)
	assert.IsType(t, &SlogLogger{}, logger)
}

func TestNewWithConfig_JSONFormat(t *testing.T) {
	config := Config{
		Name:   "test-service",
		Format: FormatJSON,
		Level:  slog.LevelDebug,
	}

	logger := NewWithConfig(config)

	assert.NotNil(t, logger)
	assert.IsType(t, &SlogLogger{}, logger)
}

func TestNewWithContext_ExtractsTraceID(t *testing.T) {
	var capturedLogs []string
	handler := &testHandler{logs: &capturedLogs}

	ctx := ContextWithTraceID(context.Background(), "test-trace-from-context")

	logger := &SlogLogger{logger: slog.New(handler)}
	tracedLogger := logger.TraceFromContext(ctx)

	tracedLogger.Info("test message")

	assert.Len(t, capturedLogs, 1)
	assert.Contains(t, capturedLogs[0], "test message")
	assert.Contains(t, capturedLogs[0], "traceID")
	assert.Contains(t, capturedLogs[0], "test-trace-from-context")
}

func TestNewWithContext_NoTraceID(t *testing.T) {
	ctx := context.Background()

	logger := NewWithContext(ctx, "test-service")

	assert.NotNil(t, logger)
	assert.IsType(t, &SlogLogger{}, logger)
}

func TestTraceIDFromContext_Missing(t *testing.T) {
	assert.Equal(t, "", TraceIDFromContext(context.Background()))
}

func TestError_ReturnsMessage(t *testing.T) {
	logger := New("test")

	err := logger.Error("test error message")

	assert.Error(t, err)
	assert.Equal(t, "test error message", err.Error())
}

func TestErrorWithType_WrapsSentinel(t *testing.T) {
	logger := New("test")
	sentinel := errors.New("validation error")

	err := logger.ErrorWithType(sentinel, "boxes exceed impounded count")

	assert.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "boxes exceed impounded count")
}

func TestErr_ReturnsOriginalError(t *testing.T) {
	logger := New("test")
	original := errors.New("connection refused")

	err := logger.Err("failed to reach gateway", original)

	assert.Same(t, original, err)
}

func TestTimer_Functionality(t *testing.T) {
	logger := New("test")

	done := logger.Timer("test operation")

	assert.NotNil(t, done)
	done()
}
