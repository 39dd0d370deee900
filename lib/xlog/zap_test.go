package xlog

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLogLevelString(t *testing.T) {
	require.Equal(t, "DEBUG", LogLevelDebug.String())
	require.Equal(t, "INFO", LogLevelInfo.String())
	require.Equal(t, "WARN", LogLevelWarn.String())
	require.Equal(t, "ERROR", LogLevelError.String())
	require.Equal(t, zapcore.DebugLevel, LogLevelDebug.zapLevel())
	require.Equal(t, zapcore.InfoLevel, LogLevelInfo.zapLevel())
	require.Equal(t, zapcore.WarnLevel, LogLevelWarn.zapLevel())
	require.Equal(t, zapcore.ErrorLevel, LogLevelError.zapLevel())
	require.Equal(t, zapcore.DebugLevel, LogLevel("unknown").zapLevel())
}

func TestGetLogLevelOrDefault(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, getLogLevelOrDefault(""))
	require.Equal(t, zapcore.DebugLevel, getLogLevelOrDefault("  "))
	require.Equal(t, zapcore.InfoLevel, getLogLevelOrDefault("info"))
	require.Equal(t, zapcore.WarnLevel, getLogLevelOrDefault("WARN"))
	require.Equal(t, zapcore.ErrorLevel, getLogLevelOrDefault("Error"))
	require.Equal(t, zapcore.DebugLevel, getLogLevelOrDefault("trace"))
}

type testMemOutWriter struct {
	data []byte
}

func (w *testMemOutWriter) Write(p []byte) (n int, err error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

func (w *testMemOutWriter) Reset() {
	w.data = make([]byte, 0, 4096)
}

func (w *testMemOutWriter) String() string {
	return string(w.data)
}

func TestXLoggerJSONOutput(t *testing.T) {
	w := &testMemOutWriter{data: make([]byte, 0, 4096)}
	logger := NewXLogger(
		WithXLoggerOutput(w),
		WithXLoggerEncoder(JSON),
		WithXLoggerLevel(LogLevelDebug),
	)

	logger.Debug("debug msg", zap.Int("n", 1))
	require.Contains(t, w.String(), `"lvl":"DEBUG"`)
	require.Contains(t, w.String(), `"msg":"debug msg"`)
	require.Contains(t, w.String(), `"n":1`)
	w.Reset()

	logger.Named("hashmap").Debug("named msg")
	require.Contains(t, w.String(), `"component":"hashmap"`)
	w.Reset()

	logger.Error(errors.New("boom"), "error msg")
	require.Contains(t, w.String(), `"error":"boom"`)
	w.Reset()

	logger.Warn("warn msg", zap.String("key", "key1"))
	require.Contains(t, w.String(), `"msg":"warn msg"`)
	require.Contains(t, w.String(), `"lvl":"WARN"`)
	require.Contains(t, w.String(), `"key":"key1"`)
}

func TestXLoggerPlainTextOutput(t *testing.T) {
	w := &testMemOutWriter{data: make([]byte, 0, 4096)}
	logger := NewXLogger(
		WithXLoggerOutput(w),
		WithXLoggerEncoder(PlainText),
		WithXLoggerLevel(LogLevelWarn),
		WithXLoggerLevelEncoder(nil),
		WithXLoggerTimeEncoder(nil),
	)
	logger.Debug("dropped")
	require.Empty(t, w.String())

	logger.Warn("plain msg")
	require.True(t, strings.Contains(w.String(), "plain msg"))
	require.False(t, strings.HasPrefix(w.String(), "{"))
}

func TestXLoggerEnvLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "ERROR")
	w := &testMemOutWriter{data: make([]byte, 0, 4096)}
	logger := NewXLogger(WithXLoggerOutput(w))
	logger.Warn("dropped")
	require.Empty(t, w.String())
	logger.Error(nil, "kept")
	require.Contains(t, w.String(), `"msg":"kept"`)
}

func TestXLoggerInvalidOptions(t *testing.T) {
	require.PanicsWithValue(t, ErrUnknownWriter, func() {
		NewXLogger(WithXLoggerWriter(_writerMax))
	})
	require.PanicsWithValue(t, ErrUnknownEncoder, func() {
		NewXLogger(WithXLoggerEncoder(_encMax))
	})
	require.PanicsWithValue(t, ErrNilOutput, func() {
		NewXLogger(WithXLoggerOutput(nil))
	})
	require.Equal(t, "unknown xlogger writer", ErrUnknownWriter.Error())
}

func TestNopXLogger(t *testing.T) {
	logger := NewNopXLogger()
	require.NotPanics(t, func() {
		logger.Debug("nop")
		logger.Named("child").Warn("nop")
		logger.Error(errors.New("nop"), "nop")
	})
}
