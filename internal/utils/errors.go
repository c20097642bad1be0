package utils

import "fmt"

// AppError is a fatal stage failure: the stage it happened in, a short
// operator-facing message and the classified cause.
type AppError struct {
	Stage string
	Msg   string
	Class ErrorCode
	Err   error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// Code returns the class computed when the error was built.
func (e *AppError) Code() ErrorCode {
	if e.Class == "" {
		return CodeUnknown
	}
	return e.Class
}

// NewAppError wraps err for stage and classifies it once.
func NewAppError(stage, msg string, err error) *AppError {
	return &AppError{Stage: stage, Msg: msg, Class: Classify(err), Err: err}
}
