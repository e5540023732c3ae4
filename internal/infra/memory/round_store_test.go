package memory

import "testing"

func TestRoundStoreContexts(t *testing.T) {
	store := NewRoundStore()

	rc := store.GetOrCreate("c1")
	if rc == nil {
		t.Fatalf("nil context")
	}
	if again := store.GetOrCreate("c1"); again != rc {
		t.Fatalf("GetOrCreate returned a different context for the same channel")
	}

	got, ok := store.Get("c1")
	if !ok || got != rc {
		t.Fatalf("Get did not return the registered context")
	}
	if _, ok := store.Get("c2"); ok {
		t.Fatalf("Get reported a context for an unknown channel")
	}

	store.Register("round-1", rc)
	byRound, ok := store.Lookup("round-1")
	if !ok || byRound != rc {
		t.Fatalf("Lookup did not resolve the round to its context")
	}
	if _, ok := store.Lookup("round-2"); ok {
		t.Fatalf("Lookup reported an unknown round")
	}

	store.Release("round-1")
	if _, ok := store.Lookup("round-1"); ok {
		t.Fatalf("Lookup resolved a released round")
	}
	// Releasing twice is harmless.
	store.Release("round-1")
}
