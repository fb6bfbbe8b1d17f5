package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"leading kind", Validation("title is required"), "title is required"},
		{"wrapped kind", fmt.Errorf("get video %s: %w", "0b0e-id", ErrNotFound), "not found"},
		{"wrapped with detail", fmt.Errorf("create video: %w", fmt.Errorf("%w: email taken", ErrConflict)), "conflict"},
		{"bare kind", ErrUnauthenticated, "unauthenticated"},
		{"unknown", errors.New("boom"), "boom"},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.err); got != tt.want {
				t.Fatalf("Message: got %q, want %q", got, tt.want)
			}
		})
	}
}
