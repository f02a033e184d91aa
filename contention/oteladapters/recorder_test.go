package oteladapters_test

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/noop"
	"go.opentelemetry.io/otel/trace"
)

// emittedRecord is the part of an OpenTelemetry log record the tests look at.
type emittedRecord struct {
	Severity log.Severity
	Body     string
	Attrs    map[string]log.Value
	SpanCtx  trace.SpanContext
}

// recordingLoggerProvider hands out loggers that keep every emitted record.
type recordingLoggerProvider struct {
	noop.LoggerProvider
	logger *recordingLogger
}

func newRecordingLoggerProvider() *recordingLoggerProvider {
	return &recordingLoggerProvider{logger: &recordingLogger{}}
}

func (p *recordingLoggerProvider) Logger(string, ...log.LoggerOption) log.Logger {
	return p.logger
}

type recordingLogger struct {
	noop.Logger

	mu      sync.Mutex
	records []emittedRecord
}

func (l *recordingLogger) Emit(ctx context.Context, record log.Record) {
	attrs := make(map[string]log.Value)
	record.WalkAttributes(func(kv log.KeyValue) bool {
		attrs[kv.Key] = kv.Value
		return true
	})

	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, emittedRecord{
		Severity: record.Severity(),
		Body:     record.Body().AsString(),
		Attrs:    attrs,
		SpanCtx:  trace.SpanContextFromContext(ctx),
	})
}

func (l *recordingLogger) Enabled(context.Context, log.EnabledParameters) bool {
	return true
}

func (l *recordingLogger) Records() []emittedRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]emittedRecord(nil), l.records...)
}
