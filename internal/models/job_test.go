package models

import (
	"errors"
	"testing"
)

func TestParseSource(t *testing.T) {
	cases := []struct {
		value string
		want  Source
	}{
		{"lever", SourceLever},
		{" LinkedIn ", SourceLinkedIn},
		{"INDEED", SourceIndeed},
	}
	for _, tc := range cases {
		got, err := ParseSource(tc.value)
		if err != nil {
			t.Fatalf("ParseSource(%q) error = %v", tc.value, err)
		}
		if got != tc.want {
			t.Fatalf("ParseSource(%q) = %q, want %q", tc.value, got, tc.want)
		}
	}

	if _, err := ParseSource("monster"); err == nil {
		t.Fatalf("expected error for unknown source")
	}
}

func TestFailedResult(t *testing.T) {
	res := FailedResult(SourceAshby, errors.New("boom"))
	if res.TotalFound != 0 || res.TotalSaved != 0 || len(res.Jobs) != 0 {
		t.Fatalf("expected zero result, got %+v", res)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected one error, got %d", len(res.Errors))
	}
	if res.Errors[0].Retryable {
		t.Fatalf("synthesized error must be non-retryable")
	}
	if res.Errors[0].Error() != "ashby: boom" {
		t.Fatalf("unexpected message: %q", res.Errors[0].Error())
	}
}
