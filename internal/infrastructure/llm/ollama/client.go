// Package ollama talks to a local Ollama server through its chat endpoint.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func New(baseURL, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// Complete sends one chat exchange and returns the assistant reply.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	messages := make([]chatMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, turn := range req.History {
		messages = append(messages, chatMessage{Role: roleFor(turn.Sender), Content: turn.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})

	body := chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options:  map[string]any{"temperature": req.Temperature},
	}
	if req.MaxTokens > 0 {
		body.Options["num_predict"] = req.MaxTokens
	}
	if req.JSON {
		body.Format = "json"
	}

	var response chatResponse
	if err := c.postJSON(ctx, "/api/chat", body, &response, "chat"); err != nil {
		return "", err
	}
	content := strings.TrimSpace(response.Message.Content)
	if content == "" {
		return "", fmt.Errorf("ollama chat: empty response")
	}
	return content, nil
}

func roleFor(sender string) string {
	if sender == "user" {
		return "user"
	}
	return "assistant"
}
