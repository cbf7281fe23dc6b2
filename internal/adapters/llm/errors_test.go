package llm

import (
	"errors"
	"strings"
	"testing"
)

func TestRedactErrorKnownClasses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"invalid key", errors.New("googleapi: 400 API_KEY_INVALID"), "API key is invalid"},
		{"key not valid", errors.New("API key not valid. Please pass a valid API key."), "API key is invalid"},
		{"quota", errors.New("rpc error: code = RESOURCE_EXHAUSTED desc = quota exceeded"), "quota has been exhausted"},
		{"history role", errors.New("invalid history: first turn role must be user"), "history could not be restored"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RedactError(tc.err)
			if !strings.Contains(got, tc.want) {
				t.Fatalf("RedactError(%v) = %q, want substring %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestRedactErrorTruncatesUnknown(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := RedactError(errors.New(long))
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("long error not truncated: %q", got)
	}
	if len(got) > len("The model request failed: ")+maxRedactedErrLen+3 {
		t.Fatalf("redacted message too long: %d chars", len(got))
	}
}

func TestRedactErrorNil(t *testing.T) {
	if got := RedactError(nil); got != "" {
		t.Fatalf("RedactError(nil) = %q", got)
	}
}
