package capture

import (
	"testing"
	"time"
)

func TestNormalizeTarget(t *testing.T) {
	cases := map[string]string{
		"alpha":          "alpha",
		"  alpha  ":      "alpha",
		"Some User_42":   "Some-User_42",
		"weird/..\\name": "weird-..-name",
		"émile":          "-mile",
	}
	for in, want := range cases {
		if got := NormalizeTarget(in); got != want {
			t.Fatalf("NormalizeTarget(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClaimGrowsDedupSetMonotonically(t *testing.T) {
	sess, err := NewSession("alpha", t.TempDir(), time.Now())
	if err != nil {
		t.Fatal(err)
	}

	if idx, ok := sess.claim(5); !ok || idx != 0 {
		t.Fatalf("first claim: idx=%d ok=%v", idx, ok)
	}
	if _, ok := sess.claim(5); ok {
		t.Fatal("duplicate claim must be rejected")
	}
	if idx, ok := sess.claim(6); !ok || idx != 1 {
		t.Fatalf("second claim should advance the counter: idx=%d ok=%v", idx, ok)
	}

	// A released sequence can be claimed again, but the arrival counter never
	// goes backwards.
	sess.release(6)
	if idx, ok := sess.claim(6); !ok || idx != 2 {
		t.Fatalf("re-claim after release: idx=%d ok=%v", idx, ok)
	}
}

func TestArrivalCountIsNonDestructive(t *testing.T) {
	sess, err := NewSession("alpha", t.TempDir(), time.Now())
	if err != nil {
		t.Fatal(err)
	}

	if sess.ArrivalCount() != 0 {
		t.Fatal("new session should report zero arrivals")
	}
	sess.claim(1)
	// Repeated reads must agree: two lanes sharing the session both need to
	// see the same activity.
	if sess.ArrivalCount() != 1 || sess.ArrivalCount() != 1 {
		t.Fatal("reading the arrival count must not change it")
	}
	sess.claim(2)
	if sess.ArrivalCount() != 2 {
		t.Fatalf("expected 2 arrivals, got %d", sess.ArrivalCount())
	}
}
