package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	zlog := zerolog.New(buf).With().Timestamp().Logger()
	return &Logger{zlog: zlog}
}

func TestNew_ProductionMode(t *testing.T) {
	logger := New("production")

	if logger == nil {
		t.Fatal("Expected logger to be created")
	}
}

func TestInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger.Info("info message", map[string]interface{}{
		"user":   "testuser",
		"action": "search",
	})

	output := buf.String()
	if !strings.Contains(output, "info message") {
		t.Error("Expected log output to contain message")
	}
	if !strings.Contains(output, "testuser") {
		t.Error("Expected log output to contain user field")
	}
}

func TestWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger.Warn("warning message", map[string]interface{}{
		"warning_type": "corrupt_file",
	})

	output := buf.String()
	if !strings.Contains(output, "warning message") {
		t.Error("Expected log output to contain message")
	}
	if !strings.Contains(output, "corrupt_file") {
		t.Error("Expected log output to contain warning_type field")
	}
}

func TestError(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	testErr := errors.New("test error")
	logger.Error("error occurred", testErr, map[string]interface{}{
		"context": "database",
	})

	output := buf.String()
	if !strings.Contains(output, "error occurred") {
		t.Error("Expected log output to contain message")
	}
	if !strings.Contains(output, "test error") {
		t.Error("Expected log output to contain error message")
	}
	if !strings.Contains(output, "database") {
		t.Error("Expected log output to contain context field")
	}
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	childLogger := logger.WithRequestID("req-12345")
	childLogger.Info("request received", nil)

	output := buf.String()
	if !strings.Contains(output, "req-12345") {
		t.Error("Expected log output to contain request ID")
	}
	if !strings.Contains(output, "request_id") {
		t.Error("Expected log output to have request_id field")
	}
}

func TestLogLevels_Production(t *testing.T) {
	var buf bytes.Buffer
	zlog := zerolog.New(&buf).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	logger := &Logger{zlog: zlog}

	// Debug should not appear at info level
	logger.Debug("debug message", nil)
	debugOutput := buf.String()

	buf.Reset()

	logger.Info("info message", nil)
	infoOutput := buf.String()

	if strings.Contains(debugOutput, "debug message") {
		t.Error("Debug message should not appear in production logging")
	}
	if !strings.Contains(infoOutput, "info message") {
		t.Error("Info message should appear in production logging")
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger.Info("test json", map[string]interface{}{
		"key": "value",
	})

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Errorf("Expected valid JSON output, got error: %v", err)
	}

	if logEntry["message"] != "test json" {
		t.Error("Expected JSON to contain message field")
	}
}

func TestNilFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	// Should not panic with nil fields
	logger.Info("message with nil fields", nil)

	if !strings.Contains(buf.String(), "message with nil fields") {
		t.Error("Expected message to be logged even with nil fields")
	}
}
