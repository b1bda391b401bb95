package browser

import (
	"testing"

	"sluice/internal/capture"
	"sluice/internal/logging"
)

func TestPublishDropsWhenBufferFull(t *testing.T) {
	events := make(chan capture.FetchEvent, 1)
	logger := logging.NewNop()

	if !publish(events, capture.FetchEvent{URL: "https://cdn.example/a_1.ts"}, logger) {
		t.Fatal("first publish should fit in the buffer")
	}
	if publish(events, capture.FetchEvent{URL: "https://cdn.example/a_2.ts"}, logger) {
		t.Fatal("publish must not block on a full buffer")
	}

	got := <-events
	if got.URL != "https://cdn.example/a_1.ts" {
		t.Fatalf("unexpected buffered event: %q", got.URL)
	}
}

func TestPublishPreservesArrivalOrder(t *testing.T) {
	events := make(chan capture.FetchEvent, 4)
	logger := logging.NewNop()

	urls := []string{
		"https://cdn.example/a_3.ts",
		"https://cdn.example/a_1.ts",
		"https://cdn.example/a_2.ts",
	}
	for _, u := range urls {
		publish(events, capture.FetchEvent{URL: u}, logger)
	}

	for i, want := range urls {
		got := <-events
		if got.URL != want {
			t.Fatalf("event %d: got %q want %q", i, got.URL, want)
		}
	}
}
