package question

import (
	"math/rand"
	"sync"
	"time"

	"cs-quiz-bot/internal/domain"
)

// FallbackPool is a static set of pre-authored questions served when the
// LLM source is unavailable, so an API outage never cancels the quiz.
type FallbackPool struct {
	questions []domain.Question

	// rnd is not goroutine-safe; message handlers and the scheduler pick
	// concurrently.
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewFallbackPool(questions []domain.Question) *FallbackPool {
	if len(questions) == 0 {
		questions = builtinFallbacks()
	}
	return &FallbackPool{
		questions: questions,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Size returns the number of pooled questions.
func (p *FallbackPool) Size() int {
	return len(p.questions)
}

// Pick returns a random pooled question, avoiding avoidTopic whenever the
// pool holds at least one question on a different topic.
func (p *FallbackPool) Pick(avoidTopic string) domain.Question {
	candidates := make([]domain.Question, 0, len(p.questions))
	for _, q := range p.questions {
		if q.Topic != avoidTopic {
			candidates = append(candidates, q)
		}
	}
	if len(candidates) == 0 {
		candidates = p.questions
	}
	p.mu.Lock()
	n := p.rnd.Intn(len(candidates))
	p.mu.Unlock()
	return candidates[n]
}

func builtinFallbacks() []domain.Question {
	return []domain.Question{
		{
			Topic:  "Operating Systems",
			Prompt: "Which of the following scheduling algorithms is preemptive by design?",
			Options: map[string]string{
				"A": "First-Come, First-Served (FCFS)",
				"B": "Shortest Job First (SJF)",
				"C": "Round Robin",
				"D": "Non-preemptive Priority",
			},
			Correct:     "C",
			Explanation: "Round Robin uses time slices, forcing a context switch once the quantum expires.",
			Difficulty:  "Medium",
			Source:      "fallback",
		},
		{
			Topic:  "Algorithms & Data Structures",
			Prompt: "What is the time complexity of inserting an element into a max-heap of size n?",
			Options: map[string]string{
				"A": "O(1)",
				"B": "O(log n)",
				"C": "O(n)",
				"D": "O(n log n)",
			},
			Correct:     "B",
			Explanation: "Heap insertion bubbles the value up at most log n levels.",
			Difficulty:  "Medium",
			Source:      "fallback",
		},
		{
			Topic:  "Databases & SQL",
			Prompt: "In SQL, which isolation level prevents dirty reads but allows phantom reads?",
			Options: map[string]string{
				"A": "Read Uncommitted",
				"B": "Read Committed",
				"C": "Repeatable Read",
				"D": "Serializable",
			},
			Correct:     "B",
			Explanation: "Read Committed prevents dirty reads but still allows phantom and non-repeatable reads.",
			Difficulty:  "Medium",
			Source:      "fallback",
		},
		{
			Topic:  "Computer Networking",
			Prompt: "Which layer of the OSI model is responsible for end-to-end communication and error recovery?",
			Options: map[string]string{
				"A": "Network Layer",
				"B": "Transport Layer",
				"C": "Session Layer",
				"D": "Data Link Layer",
			},
			Correct:     "B",
			Explanation: "The Transport Layer provides end-to-end communication services including error recovery and flow control.",
			Difficulty:  "Medium",
			Source:      "fallback",
		},
		{
			Topic:  "Machine Learning",
			Prompt: "Which technique helps prevent overfitting by randomly dropping neurons during training?",
			Options: map[string]string{
				"A": "Batch Normalization",
				"B": "Dropout",
				"C": "Early Stopping",
				"D": "Data Augmentation",
			},
			Correct:     "B",
			Explanation: "Dropout disables random neurons during training, forcing the network to learn redundant representations.",
			Difficulty:  "Medium",
			Source:      "fallback",
		},
	}
}
