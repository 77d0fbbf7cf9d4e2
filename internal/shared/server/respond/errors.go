package respond

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kimola/kimola-go/internal/shared/telemetry"
	"github.com/kimola/kimola-go/kimola"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if principal := c.GetString("principal"); principal != "" {
		fields["principal"] = principal
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// Upstream maps a failed Kimola API call onto a response.
func Upstream(c *gin.Context, err error) {
	status := kimola.StatusCode(err)
	var details interface{}
	if status > 0 {
		details = gin.H{"upstreamStatus": status}
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		Error(c, http.StatusGatewayTimeout, "timeout", "upstream request timed out", nil)
	case kimola.IsUnauthorized(err), kimola.IsForbidden(err), kimola.IsBadRequest(err):
		Error(c, http.StatusBadGateway, "upstream_auth", err.Error(), details)
	case kimola.IsRateLimited(err):
		Error(c, http.StatusServiceUnavailable, "upstream_rate_limited", "kimola rate limit reached", details)
	case kimola.IsNotFound(err):
		Error(c, http.StatusNotFound, "not_found", err.Error(), details)
	default:
		Error(c, http.StatusBadGateway, "upstream_error", "kimola request failed", details)
	}
}
