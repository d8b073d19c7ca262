package qdrant

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type OperationErrorCode string

const (
	OperationErrorValidation      OperationErrorCode = "validation_failed"
	OperationErrorTransportFailed OperationErrorCode = "transport_failed"
	OperationErrorTimeout         OperationErrorCode = "timeout"
	OperationErrorQueryFailed     OperationErrorCode = "query_failed"
)

type OperationError struct {
	Code      OperationErrorCode
	Operation string
	Message   string
	Cause     error
}

func (e *OperationError) Error() string {
	if e == nil {
		return "qdrant operation failed"
	}
	if e.Message != "" {
		return fmt.Sprintf("qdrant operation failed (op=%s code=%s): %s", e.Operation, e.Code, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("qdrant operation failed (op=%s code=%s): %v", e.Operation, e.Code, e.Cause)
	}
	return fmt.Sprintf("qdrant operation failed (op=%s code=%s)", e.Operation, e.Code)
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func opErr(op string, code OperationErrorCode, msg string, cause error) error {
	return &OperationError{
		Code:      code,
		Operation: op,
		Message:   msg,
		Cause:     cause,
	}
}

// classifyCallError maps transport failures onto the operation taxonomy so
// callers can distinguish timeouts from hard failures.
func classifyCallError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.DeadlineExceeded:
			return opErr(op, OperationErrorTimeout, message, err)
		case codes.Unavailable, codes.Canceled:
			return opErr(op, OperationErrorTransportFailed, message, err)
		}
	}
	return opErr(op, OperationErrorQueryFailed, message, err)
}
