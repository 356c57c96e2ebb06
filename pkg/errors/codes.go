package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
)

// Dataset load error codes. Any of these marks a LoadError: the document
// could not be turned into a usable structure at all.
const (
	ErrCodePolicyLoad        ErrorCode = "LOAD_001"
	ErrCodeReferenceLoad     ErrorCode = "LOAD_002"
	ErrCodeSourceUnavailable ErrorCode = "LOAD_003"
)

// Policy tree error codes
const (
	ErrCodeNodeNotFound      ErrorCode = "POL_001"
	ErrCodeNodeNotSelectable ErrorCode = "POL_002"
)

// News error codes
const (
	ErrCodeFeedFetch    ErrorCode = "NEWS_001"
	ErrCodeNewsStore    ErrorCode = "NEWS_002"
	ErrCodeInvalidQuery ErrorCode = "NEWS_003"
)

// Short aliases used by call sites.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeUnauthorized = ErrCodeUnauthorized
	CodeUnavailable  = ErrCodeServiceUnavailable
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusForbidden,

	ErrCodePolicyLoad:        http.StatusInternalServerError,
	ErrCodeReferenceLoad:     http.StatusInternalServerError,
	ErrCodeSourceUnavailable: http.StatusServiceUnavailable,

	ErrCodeNodeNotFound:      http.StatusNotFound,
	ErrCodeNodeNotSelectable: http.StatusUnprocessableEntity,

	ErrCodeFeedFetch:    http.StatusBadGateway,
	ErrCodeNewsStore:    http.StatusInternalServerError,
	ErrCodeInvalidQuery: http.StatusBadRequest,
}

// ErrorCodeMessage holds the default message for each code.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeNotFound:           "resource not found",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeSerialization:      "serialization error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeFeatureDisabled:    "feature disabled",

	ErrCodePolicyLoad:        "policy dataset could not be loaded",
	ErrCodeReferenceLoad:     "reference tables could not be loaded",
	ErrCodeSourceUnavailable: "dataset source unavailable",

	ErrCodeNodeNotFound:      "policy node not found",
	ErrCodeNodeNotSelectable: "policy node cannot be selected",

	ErrCodeFeedFetch:    "news feed fetch failed",
	ErrCodeNewsStore:    "news store failure",
	ErrCodeInvalidQuery: "invalid news query",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// ModuleForCode returns the module prefix of an ErrorCode ("LOAD", "NEWS", ...).
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
