package otel

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// statements longer than this are cut in span attributes
const maxStatementLen = 512

// DBSpan starts a client span named db.<operation> <table>.
func DBSpan(ctx context.Context, operation, table, query string) (context.Context, trace.Span) {
	name := "db." + operation
	if table != "" {
		name += " " + table
	}
	if len(query) > maxStatementLen {
		query = query[:maxStatementLen] + "..."
	}
	return Tracer().Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemKey.String("postgresql"),
			semconv.DBOperationKey.String(operation),
			attribute.String("db.sql.table", table),
			attribute.String("db.statement", query),
		),
	)
}

// EndDBSpan 结束 span；ErrNoRows 不算错误
func EndDBSpan(span trace.Span, err error) {
	defer span.End()
	if err == nil || errors.Is(err, pgx.ErrNoRows) {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
