package redis

import (
	"testing"
	"time"
)

func TestRoundStoreRegisterMarksLiveness(t *testing.T) {
	mr, client := testClient(t)
	store := NewRoundStore(client, time.Hour)

	rc := store.GetOrCreate("c1")
	if again := store.GetOrCreate("c1"); again != rc {
		t.Fatalf("GetOrCreate returned a different context for the same channel")
	}

	store.Register("round-1", rc)

	got, ok := store.Lookup("round-1")
	if !ok || got != rc {
		t.Fatalf("Lookup did not resolve the registered round")
	}

	marker, err := mr.Get("quiz:round:c1")
	if err != nil {
		t.Fatalf("liveness marker: %v", err)
	}
	if marker != "round-1" {
		t.Fatalf("marker = %q, want round-1", marker)
	}

	mr.FastForward(2 * time.Hour)
	if mr.Exists("quiz:round:c1") {
		t.Fatalf("liveness marker survived its TTL")
	}

	store.Release("round-1")
	if _, ok := store.Lookup("round-1"); ok {
		t.Fatalf("Lookup resolved a released round")
	}
}
