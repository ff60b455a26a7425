package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	googleoption "google.golang.org/api/option"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
)

// Google implements ports.Completer with the Gemini API. A client is opened
// per call so the caller's context governs the connection.
type Google struct {
	apiKey string
	model  string
}

func NewGoogle(cfg ProviderConfig) *Google {
	return &Google{apiKey: cfg.APIKey, model: cfg.Model}
}

func (p *Google) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	client, err := genai.NewClient(ctx, googleoption.WithAPIKey(p.apiKey))
	if err != nil {
		return "", fmt.Errorf("google: genai client: %w", err)
	}
	defer client.Close()

	m := client.GenerativeModel(p.model)
	if req.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.MaxTokens > 0 {
		maxOut := int32(req.MaxTokens)
		m.MaxOutputTokens = &maxOut
	}
	temp32 := float32(req.Temperature)
	m.Temperature = &temp32
	if req.JSON {
		m.ResponseMIMEType = "application/json"
	}

	session := m.StartChat()
	for _, turn := range req.History {
		role := "model"
		if turn.Sender == "user" {
			role = "user"
		}
		session.History = append(session.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}

	resp, err := session.SendMessage(ctx, genai.Text(req.User))
	if err != nil {
		return "", fmt.Errorf("google: generate content: %w", err)
	}

	var parts []string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				parts = append(parts, string(t))
			}
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("google: response contained no text content")
	}
	return strings.Join(parts, ""), nil
}
