package selector_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sluice/internal/selector"
)

func TestStaticAssignsByIndex(t *testing.T) {
	s := selector.NewStatic([]string{"alpha", "beta"})

	name, err := s.Select(context.Background(), 0)
	if err != nil || name != "alpha" {
		t.Fatalf("lane 0: got %q, %v", name, err)
	}
	name, err = s.Select(context.Background(), 1)
	if err != nil || name != "beta" {
		t.Fatalf("lane 1: got %q, %v", name, err)
	}
	name, err = s.Select(context.Background(), 2)
	if err != nil || name != "" {
		t.Fatalf("lane beyond list should get nothing, got %q, %v", name, err)
	}
}

func TestHTTPSelectReturnsTargetName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lanes/3" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte("gamma\n"))
	}))
	defer server.Close()

	c := selector.NewHTTP(server.URL, time.Second)
	name, err := c.Select(context.Background(), 3)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if name != "gamma" {
		t.Fatalf("expected trimmed target name, got %q", name)
	}
}

func TestHTTPSelectNoContentMeansNoTarget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := selector.NewHTTP(server.URL, time.Second)
	name, err := c.Select(context.Background(), 0)
	if err != nil {
		t.Fatalf("204 should not be an error: %v", err)
	}
	if name != "" {
		t.Fatalf("expected empty target, got %q", name)
	}
}

func TestHTTPSelectServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := selector.NewHTTP(server.URL, time.Second)
	if _, err := c.Select(context.Background(), 0); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
