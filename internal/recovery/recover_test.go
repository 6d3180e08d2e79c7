package recovery

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRecoverToError(t *testing.T) {
	err := RecoverToError(discard, "DoGet", func() error {
		panic("boom")
	})
	if status.Code(err) != codes.Internal {
		t.Errorf("Expected Internal, got %v", err)
	}

	want := errors.New("plain")
	if err := RecoverToError(discard, "DoGet", func() error { return want }); err != want {
		t.Errorf("Expected error to pass through, got %v", err)
	}
}

func TestRecoverToValue(t *testing.T) {
	v, err := RecoverToValue(discard, "Read", func() (int, error) {
		var m map[string]int
		m["x"] = 1
		return 1, nil
	})
	if err == nil || v != 0 {
		t.Errorf("Expected zero value and error, got %d, %v", v, err)
	}

	v, err = RecoverToValue(discard, "Read", func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Errorf("Expected 7, got %d, %v", v, err)
	}
}
