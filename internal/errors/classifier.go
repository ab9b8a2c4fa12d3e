package errors

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

type ErrorClass int

const (
	ClassInternal ErrorClass = iota
	ClassValidation
	ClassAuthentication
	ClassAuthorization
	ClassNotFound
	ClassConflict
	ClassRateLimit
	ClassExternal
)

func (c ErrorClass) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassAuthentication:
		return "authentication"
	case ClassAuthorization:
		return "authorization"
	case ClassNotFound:
		return "not_found"
	case ClassConflict:
		return "conflict"
	case ClassRateLimit:
		return "rate_limit"
	case ClassExternal:
		return "external"
	default:
		return "internal"
	}
}

type ClassifiedError struct {
	Class         ErrorClass
	InternalError error
	StatusCode    int
	OperationName string
	Metadata      map[string]any
}

type ErrorClassifier struct {
	logger *slog.Logger
}

func NewErrorClassifier(logger *slog.Logger) *ErrorClassifier {
	return &ErrorClassifier{logger: logger}
}

func (ec *ErrorClassifier) Classify(err error, operation string) *ClassifiedError {
	classified := &ClassifiedError{
		InternalError: err,
		OperationName: operation,
		Metadata:      make(map[string]any, 4),
	}

	var permanent *PermanentHTTPError
	var transient *TransientHTTPError

	switch {
	case errors.Is(err, ErrSigning):
		classified.Class = ClassAuthentication
	case errors.Is(err, ErrInvalidConfig):
		classified.Class = ClassValidation
	case errors.As(err, &permanent):
		classified.StatusCode = permanent.StatusCode
		classified.Class = classifyStatus(permanent.StatusCode)
		if len(permanent.Body) > 0 {
			classified.Metadata["response"] = string(permanent.Body)
		}
	case errors.As(err, &transient):
		classified.StatusCode = transient.StatusCode
		classified.Metadata["attempts"] = transient.Attempts
		if transient.StatusCode == http.StatusTooManyRequests {
			classified.Class = ClassRateLimit
		} else {
			classified.Class = ClassExternal
		}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrDecode):
		classified.Class = ClassExternal
	default:
		classified.Class = ClassInternal
	}

	return classified
}

// Log records a classified failure and returns the original error so callers
// can keep propagating it.
func (ec *ErrorClassifier) Log(ctx context.Context, classified *ClassifiedError, attrs ...any) error {
	args := []any{
		"operation", classified.OperationName,
		"error_class", classified.Class.String(),
		"error", classified.InternalError.Error(),
	}
	if classified.StatusCode != 0 {
		args = append(args, "status", classified.StatusCode)
	}
	for k, v := range classified.Metadata {
		args = append(args, k, v)
	}
	args = append(args, attrs...)

	ec.logger.ErrorContext(ctx, "operation failed", args...)
	return classified.InternalError
}

func classifyStatus(code int) ErrorClass {
	switch code {
	case http.StatusUnauthorized:
		return ClassAuthentication
	case http.StatusForbidden:
		return ClassAuthorization
	case http.StatusNotFound:
		return ClassNotFound
	case http.StatusConflict:
		return ClassConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ClassValidation
	case http.StatusTooManyRequests:
		return ClassRateLimit
	default:
		return ClassExternal
	}
}
