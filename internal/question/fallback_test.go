package question

import (
	"sync"
	"testing"

	"cs-quiz-bot/internal/domain"
)

func TestBuiltinPoolShape(t *testing.T) {
	pool := NewFallbackPool(nil)
	if pool.Size() == 0 {
		t.Fatalf("builtin pool is empty")
	}
	for i := 0; i < pool.Size(); i++ {
		q := pool.questions[i]
		if len(q.Options) != 4 {
			t.Errorf("question %d has %d options", i, len(q.Options))
		}
		if !domain.ValidOption(q.Correct) {
			t.Errorf("question %d has invalid answer %q", i, q.Correct)
		}
		if _, ok := q.Options[q.Correct]; !ok {
			t.Errorf("question %d answer %q missing from options", i, q.Correct)
		}
		if q.Source != "fallback" {
			t.Errorf("question %d source = %q", i, q.Source)
		}
	}
}

func TestPickAvoidsPreviousTopic(t *testing.T) {
	pool := NewFallbackPool([]domain.Question{
		{Topic: "Operating Systems", Correct: "A"},
		{Topic: "Databases & SQL", Correct: "B"},
	})
	for i := 0; i < 50; i++ {
		if q := pool.Pick("Operating Systems"); q.Topic == "Operating Systems" {
			t.Fatalf("pick %d repeated the avoided topic", i)
		}
	}
}

func TestPickConcurrently(t *testing.T) {
	// Message handlers and the daily scheduler pick on separate goroutines.
	pool := NewFallbackPool(nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if q := pool.Pick(""); q.Prompt == "" {
					t.Errorf("empty question from pool")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestPickSingleTopicPool(t *testing.T) {
	pool := NewFallbackPool([]domain.Question{
		{Topic: "Operating Systems", Correct: "A"},
	})
	// With nothing else to rotate to, the avoided topic is served anyway.
	if q := pool.Pick("Operating Systems"); q.Topic != "Operating Systems" {
		t.Fatalf("unexpected topic %q", q.Topic)
	}
}
