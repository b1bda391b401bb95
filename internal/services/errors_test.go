package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := fmt.Errorf("exit status 1")
	err := Wrap(ErrExternalTool, "reassembly", "concat", "ffmpeg failed", base)

	if !errors.Is(err, ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "selector", "select", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestWrapBuildsDetail(t *testing.T) {
	err := Wrap(ErrValidation, "capture", "observe", "empty payload", nil)
	want := "validation error: capture: observe: empty payload"
	if err.Error() != want {
		t.Fatalf("got %q want %q", err.Error(), want)
	}
}

func TestWrapEmptyDetail(t *testing.T) {
	err := Wrap(ErrConfiguration, "", "", "", nil)
	if err.Error() != "configuration error: service failure" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
