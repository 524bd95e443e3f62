package ai

import (
	"context"
	"fmt"

	"github.com/Coin333/courage-reps/pkg/models"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// generateFunc sends one prompt and returns the model's text
type generateFunc func(ctx context.Context, system, prompt string) (string, error)

// Gemini analyzes reflections with Google's Gemini API
type Gemini struct {
	model    string
	generate generateFunc
	limiter  *rate.Limiter
}

// NewGemini creates a Gemini analyzer
func NewGemini(ctx context.Context, apiKey, model string, limiter *rate.Limiter) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	g := &Gemini{model: model, limiter: limiter}
	g.generate = func(ctx context.Context, system, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			Temperature:       genai.Ptr[float32](0.7),
		})
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return g, nil
}

// Analyze asks Gemini for feedback on a reflection
func (g *Gemini) Analyze(ctx context.Context, req Request) (models.Feedback, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return models.Feedback{}, fmt.Errorf("failed to wait for rate limiter: %w", err)
		}
	}
	text, err := g.generate(ctx, systemPrompt, userPrompt(req))
	if err != nil {
		return models.Feedback{}, fmt.Errorf("failed to generate content: %w", err)
	}
	return parseFeedback(text)
}
