package utils

import (
	"context"
	"errors"
	"io/fs"
	"os"
)

// ErrorCode is a coarse error class used in logs and metric labels.
type ErrorCode string

const (
	CodeSchema      ErrorCode = "schema"
	CodeParse       ErrorCode = "parse"
	CodeConfig      ErrorCode = "config"
	CodeConvergence ErrorCode = "convergence"
	CodeIO          ErrorCode = "io"
	CodeCancel      ErrorCode = "cancel"
	CodeUnknown     ErrorCode = "unknown"
)

// Coder is implemented by errors that know their own code.
type Coder interface {
	Code() ErrorCode
}

// Classify returns the code of the first error in the chain that declares one.
func Classify(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var coder Coder
	if errors.As(err, &coder) {
		return coder.Code()
	}
	var pathErr *fs.PathError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancel
	case errors.As(err, &pathErr), errors.Is(err, os.ErrNotExist), errors.Is(err, os.ErrPermission):
		return CodeIO
	}
	return CodeUnknown
}

// CodedError attaches an ErrorCode to an error.
type CodedError struct {
	code ErrorCode
	err  error
}

// WithCode wraps err so that Classify reports code.
func WithCode(code ErrorCode, err error) error {
	if err == nil {
		return nil
	}
	return &CodedError{code: code, err: err}
}

func (e *CodedError) Error() string   { return e.err.Error() }
func (e *CodedError) Unwrap() error   { return e.err }
func (e *CodedError) Code() ErrorCode { return e.code }
