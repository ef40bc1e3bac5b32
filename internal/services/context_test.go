package services_test

import (
	"context"
	"testing"

	"tosho/internal/services"
)

func TestCycleIDRoundTrip(t *testing.T) {
	ctx := services.WithCycleID(context.Background(), "abc-123")
	id, ok := services.CycleIDFromContext(ctx)
	if !ok || id != "abc-123" {
		t.Fatalf("got %q %v", id, ok)
	}

	if _, ok := services.CycleIDFromContext(context.Background()); ok {
		t.Fatal("empty context should carry no cycle id")
	}

	same := services.WithCycleID(context.Background(), "")
	if _, ok := services.CycleIDFromContext(same); ok {
		t.Fatal("blank id should not be stored")
	}
}
