package helpers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type ErrorKind string

const (
	KindInvalidPayload  ErrorKind = "invalid_payload"
	KindMissingField    ErrorKind = "missing_field"
	KindInvalidField    ErrorKind = "invalid_field"
	KindNotFound        ErrorKind = "not_found"
	KindNotPaid         ErrorKind = "not_paid"
	KindAlreadyUsed     ErrorKind = "already_used"
	KindUnauthorized    ErrorKind = "unauthorized"
	KindForbidden       ErrorKind = "forbidden"
	KindUpstreamFailure ErrorKind = "upstream_failure"
	KindMisconfigured   ErrorKind = "misconfigured"
	KindInternal        ErrorKind = "error"
)

var kindStatus = map[ErrorKind]int{
	KindInvalidPayload:  http.StatusBadRequest,
	KindMissingField:    http.StatusBadRequest,
	KindInvalidField:    http.StatusBadRequest,
	KindNotFound:        http.StatusNotFound,
	KindNotPaid:         http.StatusForbidden,
	KindAlreadyUsed:     http.StatusConflict,
	KindUnauthorized:    http.StatusUnauthorized,
	KindForbidden:       http.StatusForbidden,
	KindUpstreamFailure: http.StatusBadGateway,
	KindMisconfigured:   http.StatusInternalServerError,
	KindInternal:        http.StatusInternalServerError,
}

// StatusCode maps an error kind to the HTTP status it is reported with.
func (k ErrorKind) StatusCode() int {
	if code, ok := kindStatus[k]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// AppError is the error type every handler reports through. ParticipantName
// and CheckedInAt are filled in by check-in failures so door staff can make a
// manual decision.
type AppError struct {
	Kind            ErrorKind
	Message         string
	ParticipantName string
	CheckedInAt     *time.Time
	Err             error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func WrapError(kind ErrorKind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal if err is not an AppError.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// BindingError maps a ShouldBind* failure onto the error kinds. A failed
// "required" rule is a missing field, any other failed rule an invalid one,
// and a body that cannot be decoded an invalid payload.
func BindingError(err error) *AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fieldPath(fe)
		if fe.Tag() == "required" {
			return WrapError(KindMissingField, "The field "+field+" is required.", err)
		}
		return WrapError(KindInvalidField, "The field "+field+" is invalid.", err)
	}
	if errors.Is(err, io.EOF) {
		return WrapError(KindMissingField, "The request body is required.", err)
	}
	return WrapError(KindInvalidPayload, "Invalid request body.", err)
}

// fieldPath drops the root struct name, e.g. "MainParticipant.Email".
func fieldPath(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	return fe.Field()
}

type ErrorResponse struct {
	Status          ErrorKind  `json:"status"`
	Error           string     `json:"error"`
	Message         string     `json:"message"`
	ParticipantName string     `json:"participantName,omitempty"`
	CheckedInAt     *time.Time `json:"checkedInAt,omitempty"`
}

func HTTPStatusText(code int) string {
	return http.StatusText(code)
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Status:  kindForStatus(statusCode),
		Error:   HTTPStatusText(statusCode),
		Message: customMessage,
	})
}

// RespondWithAppError writes err using its kind's status code. Errors that are
// not AppErrors are reported as a generic 500 without leaking their text.
func RespondWithAppError(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = WrapError(KindInternal, "Unexpected server error.", err)
	}
	statusCode := appErr.Kind.StatusCode()
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Status:          appErr.Kind,
		Error:           HTTPStatusText(statusCode),
		Message:         appErr.Message,
		ParticipantName: appErr.ParticipantName,
		CheckedInAt:     appErr.CheckedInAt,
	})
}

func kindForStatus(statusCode int) ErrorKind {
	switch statusCode {
	case http.StatusBadRequest:
		return KindInvalidField
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindAlreadyUsed
	case http.StatusBadGateway:
		return KindUpstreamFailure
	}
	return KindInternal
}
