package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type schemaProblem struct{}

func (schemaProblem) Error() string   { return "bad header" }
func (schemaProblem) Code() ErrorCode { return CodeSchema }

func TestClassify(t *testing.T) {
	_, statErr := os.Open(filepath.Join(t.TempDir(), "missing.csv"))

	cases := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"coder through AppError", NewAppError("ingest", "load input", fmt.Errorf("read: %w", schemaProblem{})), CodeSchema},
		{"with code", WithCode(CodeParse, errors.New("no rows")), CodeParse},
		{"cancel", NewAppError("model", "fit", context.Canceled), CodeCancel},
		{"deadline", context.DeadlineExceeded, CodeCancel},
		{"missing file", statErr, CodeIO},
		{"plain", errors.New("boom"), CodeUnknown},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestAppErrorUnwraps(t *testing.T) {
	err := NewAppError("split", "stratify", context.Canceled)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected AppError to unwrap")
	}
	if err.Error() != "split: stratify: context canceled" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWithCodeNil(t *testing.T) {
	if WithCode(CodeIO, nil) != nil {
		t.Fatalf("expected nil")
	}
}

func TestAppErrorCarriesClass(t *testing.T) {
	err := NewAppError("clean", "failed to clean input", WithCode(CodeParse, errors.New("bad row")))
	if err.Code() != CodeParse || Classify(err) != CodeParse {
		t.Fatalf("expected parse class, got %s", err.Code())
	}
	if (&AppError{Stage: "report", Msg: "write"}).Code() != CodeUnknown {
		t.Fatalf("expected unknown class without cause")
	}
}
