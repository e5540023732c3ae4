package question

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"cs-quiz-bot/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
)

// DefaultTopics is used when no topic list is configured.
var DefaultTopics = []string{
	"Algorithms & Data Structures",
	"Programming Languages",
	"Object-Oriented Programming",
	"Operating Systems",
	"Databases & SQL",
	"Computer Networking",
	"Machine Learning",
}

const defaultSystemPrompt = "You are an expert computer science educator. You create rigorous multiple-choice questions " +
	"with exactly four options labelled A, B, C, D. When a question references or benefits from code, include a concise " +
	"snippet wrapped in Markdown triple backticks with an appropriate language tag. Respond with valid JSON following the schema: " +
	`{"topic": "string", "question": "string", "options": {"A": "string", "B": "string", "C": "string", "D": "string"}, ` +
	`"answer": "A|B|C|D", "explanation": "string", "difficulty": "Easy|Medium|Hard"}.`

const defaultUserTemplate = "Generate one %s multiple-choice question about '%s'. " +
	"Ensure the problem requires conceptual reasoning or multi-step thinking rather than simple recall."

// ClientConfig configures the LLM-backed question generator.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Models      []string
	Topics      []string
	Temperature float64
	MaxTokens   int
	MaxRetries  int
	Timeout     time.Duration
}

// Client requests multiple-choice questions from an OpenAI-compatible
// chat-completions API. Models are tried in shuffled order; once every
// attempt fails the caller gets domain.ErrQuestionUnavailable and is
// expected to substitute a fallback question.
type Client struct {
	http     *resty.Client
	cfg      ClientConfig
	validate *validator.Validate

	// rnd is not goroutine-safe; Generate runs on concurrent handler and
	// scheduler goroutines.
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewClient(cfg ClientConfig) *Client {
	if len(cfg.Topics) == 0 {
		cfg.Topics = DefaultTopics
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		http:     resty.New().SetTimeout(cfg.Timeout),
		cfg:      cfg,
		validate: validator.New(),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat respFormat    `json:"response_format"`
	Messages       []chatMessage `json:"messages"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// questionPayload is the JSON shape the model must return.
type questionPayload struct {
	Topic       string            `json:"topic" validate:"required"`
	Question    string            `json:"question" validate:"required"`
	Options     map[string]string `json:"options" validate:"required,len=4,dive,keys,oneof=A B C D,endkeys,required"`
	Answer      string            `json:"answer" validate:"required,oneof=A B C D"`
	Explanation string            `json:"explanation"`
	Difficulty  string            `json:"difficulty"`
}

// Generate produces one question about topic, choosing a random configured
// topic when empty. Fails with domain.ErrQuestionUnavailable when no model
// yields a payload that satisfies the question shape.
func (c *Client) Generate(ctx context.Context, topic string) (domain.Question, error) {
	if c.cfg.APIKey == "" || len(c.cfg.Models) == 0 {
		return domain.Question{}, fmt.Errorf("no models configured: %w", domain.ErrQuestionUnavailable)
	}

	difficulty := c.pickDifficulty()

	c.mu.Lock()
	chosenTopic := topic
	if chosenTopic == "" {
		chosenTopic = c.cfg.Topics[c.rnd.Intn(len(c.cfg.Topics))]
	}
	models := append([]string(nil), c.cfg.Models...)
	c.rnd.Shuffle(len(models), func(i, j int) { models[i], models[j] = models[j], models[i] })
	c.mu.Unlock()

	if len(models) > c.cfg.MaxRetries {
		models = models[:c.cfg.MaxRetries]
	}

	var lastErr error
	for _, model := range models {
		q, err := c.generateWith(ctx, model, chosenTopic, difficulty)
		if err != nil {
			log.Printf("model %q failed for topic %q: %v", model, chosenTopic, err)
			lastErr = err
			continue
		}
		return q, nil
	}
	return domain.Question{}, fmt.Errorf("%d model attempts failed (last: %v): %w",
		len(models), lastErr, domain.ErrQuestionUnavailable)
}

func (c *Client) generateWith(ctx context.Context, model, topic, difficulty string) (domain.Question, error) {
	req := chatRequest{
		Model:          model,
		Temperature:    c.cfg.Temperature,
		MaxTokens:      c.cfg.MaxTokens,
		ResponseFormat: respFormat{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: defaultSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(defaultUserTemplate, strings.ToLower(difficulty), topic)},
		},
	}

	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.cfg.APIKey).
		SetBody(req).
		SetResult(&out).
		Post(strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions")
	if err != nil {
		return domain.Question{}, fmt.Errorf("chat completion: %w", err)
	}
	if resp.StatusCode() != 200 {
		return domain.Question{}, fmt.Errorf("chat completion: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(out.Choices) == 0 {
		return domain.Question{}, fmt.Errorf("chat completion: empty choices")
	}

	payload, err := parsePayload(out.Choices[0].Message.Content)
	if err != nil {
		return domain.Question{}, err
	}
	if err := c.validate.Struct(payload); err != nil {
		return domain.Question{}, fmt.Errorf("invalid question shape: %w", err)
	}

	if payload.Difficulty == "" {
		payload.Difficulty = difficulty
	}
	return domain.Question{
		Topic:       payload.Topic,
		Prompt:      payload.Question,
		Options:     payload.Options,
		Correct:     payload.Answer,
		Explanation: payload.Explanation,
		Difficulty:  payload.Difficulty,
		Source:      model,
	}, nil
}

// pickDifficulty is weighted 30/50/20 easy/medium/hard.
func (c *Client) pickDifficulty() string {
	c.mu.Lock()
	n := c.rnd.Intn(100)
	c.mu.Unlock()
	switch {
	case n < 30:
		return "Easy"
	case n < 80:
		return "Medium"
	default:
		return "Hard"
	}
}
