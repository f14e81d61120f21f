package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// Metric names emitted per request.
const (
	MetricHTTPRequests = "HTTPRequests"
	MetricHTTPLatency  = "HTTPLatency"
	MetricHTTP4xx      = "HTTP4xx"
	MetricHTTP5xx      = "HTTP5xx"
)

// MetricsRecorder is satisfied by the CloudWatch client in pkg/aws.
type MetricsRecorder interface {
	IsEnabled() bool
	RecordCount(ctx context.Context, name string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, name string, d time.Duration, dimensions map[string]string) error
}

// MetricsMiddleware records request count, latency and error class per route.
// Publishing runs off the request goroutine.
func MetricsMiddleware(recorder MetricsRecorder, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if recorder == nil || !recorder.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		dimensions := map[string]string{
			"Service": serviceName,
			"Method":  c.Request.Method,
			"Route":   route,
			"Status":  statusCodeToRange(status),
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_ = recorder.RecordCount(ctx, MetricHTTPRequests, dimensions)
			_ = recorder.RecordLatency(ctx, MetricHTTPLatency, duration, dimensions)
			switch {
			case status >= 500:
				_ = recorder.RecordCount(ctx, MetricHTTP5xx, dimensions)
			case status >= 400:
				_ = recorder.RecordCount(ctx, MetricHTTP4xx, dimensions)
			}
		}()
	}
}

func statusCodeToRange(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
