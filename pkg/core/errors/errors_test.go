package errors_test

import (
	"fmt"
	"testing"

	corerrors "github.com/easyops/astrocontext-go/pkg/core/errors"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", corerrors.ErrRateLimited, true},
		{"timeout", corerrors.ErrTimeout, true},
		{"provider unavailable", corerrors.ErrProviderUnavailable, true},
		{"wrapped rate limited", fmt.Errorf("compact: %w", corerrors.ErrRateLimited), true},
		{"invalid response", corerrors.ErrInvalidResponse, false},
		{"store unavailable", corerrors.ErrStoreUnavailable, false},
		{"plain error", fmt.Errorf("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := corerrors.IsRetryable(tt.err); got != tt.want {
				t.Fatalf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
