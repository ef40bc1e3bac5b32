package services_test

import (
	"errors"
	"strings"
	"testing"

	"tosho/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransient, "feed", "fetch", "page 3", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"feed", "fetch", "page 3"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "catalog", "sync", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("nil marker should default to transient, got %v", err)
	}
}

func TestRetryableClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient", services.Wrap(services.ErrTransient, "feed", "fetch", "", errors.New("io")), true},
		{"parse", services.Wrap(services.ErrParse, "feed", "decode", "", nil), true},
		{"conflict", services.Wrap(services.ErrConflict, "feed", "persist", "", nil), true},
		{"inconsistent", services.Wrap(services.ErrInconsistent, "catalog", "sync", "no names", nil), false},
		{"configuration", services.Wrap(services.ErrConfiguration, "feed", "init", "bad url", nil), false},
		{"untagged", errors.New("mystery"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Retryable(tc.err); got != tc.want {
				t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
