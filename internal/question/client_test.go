package question

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"cs-quiz-bot/internal/domain"
)

func chatServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func completion(t *testing.T, w http.ResponseWriter, payload string) {
	t.Helper()
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": payload}},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.Errorf("encode completion: %v", err)
	}
}

const validPayload = `{
  "topic": "Operating Systems",
  "question": "Which syscall creates a new process on Unix?",
  "options": {"a": "fork", "B": "exec", "C": "wait", "D": "pipe"},
  "answer": "a",
  "explanation": "fork duplicates the calling process.",
  "difficulty": "Easy"
}`

func TestGenerateParsesCompletion(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ResponseFormat.Type != "json_object" {
			t.Errorf("response_format = %q", req.ResponseFormat.Type)
		}
		completion(t, w, validPayload)
	})

	client := NewClient(ClientConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Models:  []string{"model-a"},
	})

	q, err := client.Generate(context.Background(), "Operating Systems")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if q.Correct != "A" {
		t.Fatalf("answer not normalized: %q", q.Correct)
	}
	if q.Options["A"] != "fork" {
		t.Fatalf("option keys not normalized: %+v", q.Options)
	}
	if q.Source != "model-a" {
		t.Fatalf("source = %q, want model-a", q.Source)
	}
}

func TestGenerateRetriesAcrossModels(t *testing.T) {
	var calls int32
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		completion(t, w, validPayload)
	})

	client := NewClient(ClientConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Models:  []string{"model-a", "model-b"},
	})

	q, err := client.Generate(context.Background(), "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if q.Prompt == "" {
		t.Fatalf("empty question after retry")
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestGenerateRejectsMalformedPayloads(t *testing.T) {
	payloads := map[string]string{
		"bad answer letter": `{"topic":"t","question":"q","options":{"A":"1","B":"2","C":"3","D":"4"},"answer":"E"}`,
		"three options":     `{"topic":"t","question":"q","options":{"A":"1","B":"2","C":"3"},"answer":"A"}`,
		"missing question":  `{"topic":"t","options":{"A":"1","B":"2","C":"3","D":"4"},"answer":"A"}`,
		"not json":          `the answer is B`,
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
				completion(t, w, payload)
			})
			client := NewClient(ClientConfig{
				BaseURL: srv.URL,
				APIKey:  "test-key",
				Models:  []string{"model-a"},
			})
			if _, err := client.Generate(context.Background(), ""); !errors.Is(err, domain.ErrQuestionUnavailable) {
				t.Fatalf("expected ErrQuestionUnavailable, got %v", err)
			}
		})
	}
}

func TestGenerateWithoutCredentials(t *testing.T) {
	client := NewClient(ClientConfig{Models: []string{"model-a"}})
	if _, err := client.Generate(context.Background(), ""); !errors.Is(err, domain.ErrQuestionUnavailable) {
		t.Fatalf("expected ErrQuestionUnavailable, got %v", err)
	}

	client = NewClient(ClientConfig{APIKey: "test-key"})
	if _, err := client.Generate(context.Background(), ""); !errors.Is(err, domain.ErrQuestionUnavailable) {
		t.Fatalf("expected ErrQuestionUnavailable, got %v", err)
	}
}

func TestGenerateConcurrently(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		completion(t, w, validPayload)
	})
	client := NewClient(ClientConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Models:  []string{"model-a", "model-b", "model-c"},
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Generate(context.Background(), ""); err != nil {
				t.Errorf("generate: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestPickDifficultyValues(t *testing.T) {
	client := NewClient(ClientConfig{APIKey: "k", Models: []string{"m"}})
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		d := client.pickDifficulty()
		switch d {
		case "Easy", "Medium", "Hard":
			seen[d] = true
		default:
			t.Fatalf("unexpected difficulty %q", d)
		}
	}
	for _, d := range []string{"Easy", "Medium", "Hard"} {
		if !seen[d] {
			t.Fatalf("difficulty %q never picked", d)
		}
	}
}
