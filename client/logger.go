package client

import "go.uber.org/zap"

// Logger, SDK'nın kabul ettiği minimal log arayüzü.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, map[string]any) {}
func (noopLogger) Info(string, map[string]any)  {}
func (noopLogger) Warn(string, map[string]any)  {}
func (noopLogger) Error(string, map[string]any) {}

// NewZapLogger, zap logger'ı SDK arayüzüne bağlar.
// Server tarafında logger.L() ile alınan logger buraya verilebilir.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return zapLogger{l: l.Named("client")}
}

type zapLogger struct {
	l *zap.Logger
}

func (z zapLogger) Debug(msg string, fields map[string]any) { z.l.Debug(msg, toZap(fields)...) }
func (z zapLogger) Info(msg string, fields map[string]any)  { z.l.Info(msg, toZap(fields)...) }
func (z zapLogger) Warn(msg string, fields map[string]any)  { z.l.Warn(msg, toZap(fields)...) }
func (z zapLogger) Error(msg string, fields map[string]any) { z.l.Error(msg, toZap(fields)...) }

func toZap(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
