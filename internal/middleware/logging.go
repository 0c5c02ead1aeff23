package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"printdock.app/api/internal/apperr"
)

var (
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printdock_api_requests_total",
			Help: "Total number of requests processed by the printdock-api.",
		},
		[]string{"path", "status"},
	)
	ErrorCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printdock_api_requests_errors_total",
			Help: "Total number of error requests processed by the printdock-api.",
		},
		[]string{"path", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "printdock_api_request_duration_seconds",
			Help:    "Request latency of the printdock-api.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)
)

// PrometheusInit registers the request metrics and any extra collectors.
func PrometheusInit(extra ...prometheus.Collector) {
	prometheus.MustRegister(RequestCount, ErrorCount, RequestDuration)
	prometheus.MustRegister(extra...)
}

// Abort stops the handler chain with err. ErrorHandler picks the status from the
// error's class and writes the response.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorHandler renders the last error of the request as {success:false, message, errors}.
// Causes of unexpected errors are logged, never returned.
func ErrorHandler(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		ginErr := c.Errors.Last()
		if ginErr == nil {
			return
		}
		err := ginErr.Err

		status := apperr.Status(err)
		if status >= http.StatusInternalServerError {
			logger.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		} else {
			logger.WithField("path", c.Request.URL.Path).Debugf("request rejected: %s", err)
		}
		if c.Writer.Written() {
			// a handler already wrote the response
			return
		}

		body := gin.H{"success": false, "message": apperr.PublicMessage(err)}
		if fields := apperr.FieldErrors(err); len(fields) > 0 {
			body["errors"] = fields
		}
		c.JSON(status, body)
	}
}

// LogHandler is middleware that logs response times
func LogHandler(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		c.Next() // Process request
		status := c.Writer.Status()
		clientIP := c.ClientIP()
		latency := time.Since(start)
		if status >= 400 {
			logger.Errorf("from: %s | took: %dms | %d %s %s", clientIP, latency.Milliseconds(), status, method, path)
			ErrorCount.WithLabelValues(path, http.StatusText(status)).Inc()
		} else {
			logger.Infof("from: %s | took: %dms | %d %s %s", clientIP, latency.Milliseconds(), status, method, path)
		}
		RequestCount.WithLabelValues(path, http.StatusText(status)).Inc()
		RequestDuration.WithLabelValues(path).Observe(latency.Seconds())
	}
}

// MetricsHandler wraps the prometheus handler with basic auth. An empty password
// disables the endpoint.
func MetricsHandler(password string) gin.HandlerFunc {
	promHandler := promhttp.Handler()

	return func(c *gin.Context) {
		_, pass, ok := c.Request.BasicAuth()

		if !ok || password == "" || subtle.ConstantTimeCompare([]byte(pass), []byte(password)) != 1 {
			Abort(c, apperr.ErrUnauthenticated)
			return
		}

		promHandler.ServeHTTP(c.Writer, c.Request)
	}
}
