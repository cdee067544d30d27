package question

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/victornm/pairup/internal/domain"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// ClientConfig configures the chat-completions question generator.
type ClientConfig struct {
	// BaseURL of an OpenAI-compatible API, without the trailing
	// /chat/completions path. Defaults to OpenRouter.
	BaseURL string
	APIKey  string
	Model   string

	HTTPClient *http.Client
}

// Client generates questions through an OpenAI-compatible chat-completions
// endpoint. Every failure mode (missing credential, transport error,
// non-JSON model output) is returned as an error; there is no retry.
type Client struct {
	c ClientConfig
}

func NewClient(c ClientConfig) *Client {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{c: c}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
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

type questionItem struct {
	Question string `json:"question"`
	Option1  string `json:"option1"`
	Option2  string `json:"option2"`
}

const systemPrompt = "You are an assistant that outputs JSON only. Return exactly the requested number of items. " +
	"Each item is an object with keys 'question', 'option1', 'option2'. " +
	"Content must be school-friendly (K-12), positive, inclusive, and age-appropriate. " +
	"Vary topics (arts, science, reading, sports, hobbies, class activities) and keep options parallel and comparable. " +
	"Do not include numbering, explanations, or any text outside the JSON array."

func (cl *Client) Generate(ctx context.Context, req GenerateRequest) ([]domain.Question, error) {
	if cl.c.APIKey == "" {
		return nil, fmt.Errorf("question: api key not configured")
	}
	if req.Count <= 0 {
		return nil, fmt.Errorf("question: count must be positive, got %d", req.Count)
	}

	body, err := json.Marshal(chatRequest{
		Model: cl.c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
		Temperature: 0.9,
		TopP:        0.95,
	})
	if err != nil {
		return nil, fmt.Errorf("question: marshal request: %w", err)
	}

	url := strings.TrimSuffix(cl.c.BaseURL, "/") + "/chat/completions"
	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("question: build request: %w", err)
	}
	hr.Header.Set("Content-Type", "application/json")
	hr.Header.Set("Authorization", "Bearer "+cl.c.APIKey)

	resp, err := cl.c.HTTPClient.Do(hr)
	if err != nil {
		return nil, fmt.Errorf("question: call completions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("question: completions status %d: %s", resp.StatusCode, b)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("question: decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("question: response has no choices")
	}

	items, err := parseItems(cr.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	qs := make([]domain.Question, 0, req.Count)
	for _, it := range items {
		qs = append(qs, domain.Question{
			Text:    valueOr(it.Question, "Would you rather..."),
			Option1: valueOr(it.Option1, "Option 1"),
			Option2: valueOr(it.Option2, "Option 2"),
		})
		if len(qs) == req.Count {
			break
		}
	}

	if len(qs) == 0 {
		return nil, fmt.Errorf("question: model returned no usable items")
	}

	return qs, nil
}

func userPrompt(req GenerateRequest) string {
	names := fmt.Sprintf(" for %s", req.Player1)
	if req.Player2 != "" {
		names = fmt.Sprintf(" between %s and %s", req.Player1, req.Player2)
	}

	topic := ""
	if req.Topic != "" {
		topic = fmt.Sprintf(" Focus on %s.", req.Topic)
	}

	return fmt.Sprintf("Create %d distinct 'Would you rather' questions%s.%s "+
		"Ensure no duplicates and keep them light, fun, and educational. "+
		"Return JSON array only.", req.Count, names, topic)
}

// parseItems decodes the model output, tolerating a JSON array wrapped in a
// fenced code block.
func parseItems(content string) ([]questionItem, error) {
	var items []questionItem
	if err := json.Unmarshal([]byte(content), &items); err == nil {
		return items, nil
	}

	for _, part := range strings.Split(content, "```") {
		part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "json"))
		if !strings.HasPrefix(part, "[") || !strings.HasSuffix(part, "]") {
			continue
		}
		if err := json.Unmarshal([]byte(part), &items); err == nil {
			return items, nil
		}
	}

	return nil, fmt.Errorf("question: model output is not a JSON array")
}

func valueOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
