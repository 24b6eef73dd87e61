package httpapi

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eratosthenes/geoguess-server/internal/identity"
	"github.com/eratosthenes/geoguess-server/internal/logging"
	"github.com/eratosthenes/geoguess-server/internal/telemetry"
)

// RequestIDMiddleware stamps every request with a unique id, echoed back
// in X-Request-ID and threaded through the logging middleware.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := fmt.Sprintf("%d", time.Now().UnixNano())
		c.Set("requestId", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// LoggingMiddleware logs each request's outcome and records it with the
// telemetry shipper under the http_request task (spec.md §6).
func LoggingMiddleware(shipper *telemetry.Shipper) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		fields := map[string]interface{}{
			"task":       telemetry.TaskHTTPRequest,
			"request_id": c.GetString("requestId"),
		}
		logging.LogHTTPRequest(c.Request.Method, c.Request.URL.Path, c.Writer.Status(), duration, fields)
		shipper.Record(telemetry.TaskHTTPRequest, map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": duration.Milliseconds(),
			"request_id":  c.GetString("requestId"),
		})
	}
}

// RecoveryMiddleware turns a panic into a 500 response instead of
// tearing down the whole server - "internal" errors per spec.md §7
// must preserve liveness of the room, not the process.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logging.Error("httpapi: panic recovered", map[string]interface{}{
					"request_id": c.GetString("requestId"),
					"path":       c.Request.URL.Path,
					"error":      fmt.Sprintf("%v", r),
					"stack":      string(debug.Stack()),
				})
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": true, "errorCode": "internal"})
			}
		}()
		c.Next()
	}
}

// passcodeContextKey is where AuthMiddleware stores the decoded claims.
const passcodeContextKey = "passcodeClaims"

// AuthMiddleware requires a valid Passcode header, decoding it with
// signer and rejecting the request with 401 on failure (spec.md §7,
// "Authentication" kind).
func AuthMiddleware(signer *identity.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Passcode")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": true, "reason": "noPasscodeHeaderProvided"})
			return
		}
		claims, err := signer.Decode(header)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": true, "reason": "invalidPasscode"})
			return
		}
		c.Set(passcodeContextKey, claims)
		c.Next()
	}
}

func claimsFrom(c *gin.Context) (identity.Claims, bool) {
	v, ok := c.Get(passcodeContextKey)
	if !ok {
		return identity.Claims{}, false
	}
	claims, ok := v.(identity.Claims)
	return claims, ok
}
