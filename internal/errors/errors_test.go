package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      TranslatorFailed,
			message:   "translate src/a.ts",
			cause:     errors.New("rate limited"),
			wantParts: []string{"TRANSLATOR_ERROR", "translate src/a.ts", "rate limited"},
		},
		{
			name:      "without cause",
			code:      ConfigurationInvalid,
			message:   "maxConcurrency must be at least 1",
			wantParts: []string{"CONFIGURATION_INVALID", "maxConcurrency"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.code, tt.message, tt.cause).Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(InternalError, "something went wrong", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if New(TranslatorTimeout, "slow", nil).Unwrap() != nil {
		t.Error("Unwrap() on error without cause should return nil")
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("task failed: %w", New(TranslatorTimeout, "timed out", nil))
	if got := CodeOf(wrapped); got != TranslatorTimeout {
		t.Errorf("CodeOf = %s, want %s", got, TranslatorTimeout)
	}
	if got := CodeOf(errors.New("plain")); got != InternalError {
		t.Errorf("CodeOf(plain) = %s, want %s", got, InternalError)
	}
}

func TestIs(t *testing.T) {
	inner := New(CacheCorrupted, "bad json", nil)
	outer := New(ScanFailed, "scan", inner)

	if !Is(outer, ScanFailed) || !Is(outer, CacheCorrupted) {
		t.Error("Is should match every code in the chain")
	}
	if Is(outer, TranslatorFailed) {
		t.Error("Is should not match an absent code")
	}
	if Is(nil, ScanFailed) {
		t.Error("Is(nil) should be false")
	}
	if !IsConfiguration(fmt.Errorf("setup: %w", Newf(ConfigurationInvalid, "need %d", 1))) {
		t.Error("IsConfiguration should see through wrapping")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(ScanFailed, "glob", nil).WithDetails(map[string]string{"pattern": "**/*.ts"})
	details, ok := err.Details.(map[string]string)
	if !ok || details["pattern"] != "**/*.ts" {
		t.Errorf("unexpected details %#v", err.Details)
	}
}
