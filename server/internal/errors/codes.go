package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a specific error class surfaced by samay.
type ErrorCode string

const (
	// ErrCodeParseFailure indicates unrecognized or contradictory temporal text.
	ErrCodeParseFailure ErrorCode = "PARSE_FAILURE"
	// ErrCodeResolutionError indicates a parsed time expression could not be pinned to an instant.
	ErrCodeResolutionError ErrorCode = "RESOLUTION_ERROR"
	// ErrCodeStoreError indicates an I/O or transaction failure in the commitment store.
	ErrCodeStoreError ErrorCode = "STORE_ERROR"
	// ErrCodePublishError indicates a notification could not be handed to the bus.
	ErrCodePublishError ErrorCode = "PUBLISH_ERROR"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeNotFound indicates the addressed commitment does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeRateLimited indicates the caller exceeded its request budget.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// SamayError represents a structured error carried across layers.
type SamayError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *SamayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *SamayError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *SamayError) WithContext(key string, value any) *SamayError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ParseFailure creates a parse failure error.
func ParseFailure(msg string, cause error) *SamayError {
	return &SamayError{Code: ErrCodeParseFailure, Message: msg, Cause: cause}
}

// ResolutionError creates a resolution error.
func ResolutionError(msg string, cause error) *SamayError {
	return &SamayError{Code: ErrCodeResolutionError, Message: msg, Cause: cause}
}

// StoreError creates a store error.
func StoreError(msg string, cause error) *SamayError {
	return &SamayError{Code: ErrCodeStoreError, Message: msg, Cause: cause}
}

// PublishError creates a publish error.
func PublishError(msg string, cause error) *SamayError {
	return &SamayError{Code: ErrCodePublishError, Message: msg, Cause: cause}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *SamayError {
	return &SamayError{Code: ErrCodeInvalidArgument, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *SamayError {
	return &SamayError{Code: ErrCodeNotFound, Message: msg}
}

// RateLimited creates a rate limited error.
func RateLimited(msg string) *SamayError {
	return &SamayError{Code: ErrCodeRateLimited, Message: msg}
}

// Wrap wraps an existing error with a code.
func Wrap(cause error, code ErrorCode, msg string) *SamayError {
	return &SamayError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if any error in err's chain carries code.
func IsCode(err error, code ErrorCode) bool {
	var se *SamayError
	if stderrors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns defaultCode if no SamayError is in the chain.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var se *SamayError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return defaultCode
}

// HTTPStatus maps an error code to the status the inbound API answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeParseFailure, ErrCodeResolutionError:
		return http.StatusUnprocessableEntity
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeStoreError, ErrCodePublishError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var userMessages = map[ErrorCode]string{
	ErrCodeParseFailure:    "माफ़ कीजिए, मुझे समय समझ नहीं आया",
	ErrCodeResolutionError: "माफ़ कीजिए, मुझे समय समझ नहीं आया",
	ErrCodeInvalidArgument: "माफ़ कीजिए, अनुरोध अधूरा है",
	ErrCodeNotFound:        "यह सूची में नहीं मिला",
	ErrCodeRateLimited:     "थोड़ी देर बाद फिर से कोशिश कीजिए",
	ErrCodeStoreError:      "अभी सेव नहीं कर पाया, थोड़ी देर बाद कोशिश कीजिए",
	ErrCodePublishError:    "सूचना भेजने में दिक्कत हुई",
}

// UserMessage returns the Hindi sentence relayed to speech synthesis for code.
func UserMessage(code ErrorCode) string {
	if msg, ok := userMessages[code]; ok {
		return msg
	}
	return "माफ़ कीजिए, कुछ गड़बड़ हो गई"
}
