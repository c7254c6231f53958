package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAIClient implements domain.Completer on Gemini, either through Vertex
// AI (project + location) or the Gemini API (API key).
type GenAIClient struct {
	client    *genai.Client
	modelName string
	maxTokens int32
}

type GenAIConfig struct {
	ProjectID string
	Location  string
	APIKey    string
	Model     string
	MaxTokens int
}

// NewVertexClient creates a Completer backed by Vertex AI (Gemini).
func NewVertexClient(ctx context.Context, cfg GenAIConfig) (*GenAIClient, error) {
	if cfg.ProjectID == "" || cfg.Location == "" {
		return nil, fmt.Errorf("vertex client needs a project and a location")
	}
	return newGenAIClient(ctx, cfg, &genai.ClientConfig{
		Project:  cfg.ProjectID,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	})
}

// NewGeminiClient creates a Completer backed by the Gemini API.
func NewGeminiClient(ctx context.Context, cfg GenAIConfig) (*GenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini client needs an API key")
	}
	return newGenAIClient(ctx, cfg, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func newGenAIClient(ctx context.Context, cfg GenAIConfig, cc *genai.ClientConfig) (*GenAIClient, error) {
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	maxTokens := int32(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &GenAIClient{
		client:    client,
		modelName: modelName,
		maxTokens: maxTokens,
	}, nil
}

// Complete implements domain.Completer.
func (v *GenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(userPrompt, genai.RoleUser),
	}

	temp := float32(0.4)
	cfg := &genai.GenerateContentConfig{
		// According to official examples, the role here is usually RoleUser, not "system"
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   v.maxTokens,
	}

	res, err := v.client.Models.GenerateContent(ctx, v.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("genai generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("genai returned empty text")
	}
	return text, nil
}
