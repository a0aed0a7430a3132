package otel

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"freelancehub/pkg/rbac"
)

var (
	httpServerDuration     metric.Float64Histogram
	httpServerRequestSize  metric.Int64Histogram
	httpServerResponseSize metric.Int64Histogram
)

// InitHTTPMetrics 初始化 HTTP 指标
func InitHTTPMetrics(meter metric.Meter) error {
	var err error

	httpServerDuration, err = meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP server request duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	httpServerRequestSize, err = meter.Int64Histogram(
		"http.server.request.size",
		metric.WithDescription("HTTP server request size"),
		metric.WithUnit("bytes"),
	)
	if err != nil {
		return err
	}

	httpServerResponseSize, err = meter.Int64Histogram(
		"http.server.response.size",
		metric.WithDescription("HTTP server response size"),
		metric.WithUnit("bytes"),
	)
	return err
}

// GinMiddleware Gin 框架的 HTTP 追踪中间件
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		propagator := otel.GetTextMapPropagator()
		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx, span := Tracer().Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethodKey.String(c.Request.Method),
				semconv.HTTPRouteKey.String(route),
				attribute.String("http.user_agent", c.Request.UserAgent()),
			),
		)
		defer span.End()

		if httpServerRequestSize != nil && c.Request.ContentLength > 0 {
			httpServerRequestSize.Record(ctx, c.Request.ContentLength)
		}

		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		statusCode := c.Writer.Status()
		responseSize := int64(c.Writer.Size())
		attrs := metric.WithAttributes(
			semconv.HTTPMethodKey.String(c.Request.Method),
			semconv.HTTPRouteKey.String(route),
			semconv.HTTPStatusCodeKey.Int(statusCode),
		)
		span.SetAttributes(semconv.HTTPStatusCodeKey.Int(statusCode))
		if v, ok := c.Get(rbac.ContextKey); ok {
			if caller, ok := v.(rbac.Caller); ok {
				span.SetAttributes(
					attribute.String("enduser.id", strconv.FormatInt(caller.ID, 10)),
					attribute.String("enduser.role", caller.Role),
				)
			}
		}

		if httpServerDuration != nil {
			httpServerDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
		}
		if httpServerResponseSize != nil && responseSize > 0 {
			httpServerResponseSize.Record(ctx, responseSize, attrs)
		}

		if statusCode >= 500 {
			span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(statusCode))
		}

		propagator.Inject(ctx, propagation.HeaderCarrier(c.Writer.Header()))
	}
}
