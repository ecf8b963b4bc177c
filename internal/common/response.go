package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the standard API response envelope
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// Meta carries pagination metadata
type Meta struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// ErrorInfo carries error details
type ErrorInfo struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// NewMeta creates pagination metadata with computed has_more
func NewMeta(total int64, limit, offset int) *Meta {
	return &Meta{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+limit) < total,
	}
}

// SuccessResponse returns a success envelope
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMeta returns a success envelope with pagination
func SuccessWithMeta(c *gin.Context, data interface{}, meta *Meta) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// CreatedResponse returns a 201 Created envelope
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// ErrorResponse returns an error envelope
func ErrorResponse(c *gin.Context, status int, message string, err error) {
	info := &ErrorInfo{
		Code:    getErrorCode(status),
		Message: message,
	}
	if err != nil {
		info.Details = err.Error()
	}
	c.JSON(status, Response{
		Success: false,
		Error:   info,
	})
}

// ErrorResponseCode returns an error envelope with an explicit error code
// and structured details (e.g. violated capability rules).
func ErrorResponseCode(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// getErrorCode generates error code from HTTP status
func getErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "VALIDATION_FAILED"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "PERMISSION_DENIED"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusInternalServerError:
		return "INTERNAL_SERVER_ERROR"
	default:
		return "ERROR"
	}
}

// Wire error codes not derivable from HTTP status alone
const (
	CodeStaleApply      = "STALE_APPLY"
	CodeResolutionError = "RESOLUTION_ERROR"
)
