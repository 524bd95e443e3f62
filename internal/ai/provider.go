package ai

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Provider names accepted by FEEDBACK_PROVIDER
const (
	ProviderAuto   = "auto"
	ProviderLocal  = "local"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Options selects and configures an analyzer
type Options struct {
	Provider          string
	OpenAIKey         string
	OpenAIModel       string
	GeminiKey         string
	GeminiModel       string
	RequestsPerMinute int
}

// NewAnalyzer builds the analyzer named by opts.Provider. "auto" prefers
// OpenAI, then Gemini, then the local heuristic. A remote provider named
// explicitly without a key yields Unconfigured.
func NewAnalyzer(ctx context.Context, opts Options, logger *zap.Logger) (Analyzer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := newLimiter(opts.RequestsPerMinute)

	provider := opts.Provider
	if provider == "" || provider == ProviderAuto {
		switch {
		case opts.OpenAIKey != "":
			provider = ProviderOpenAI
		case opts.GeminiKey != "":
			provider = ProviderGemini
		default:
			provider = ProviderLocal
		}
	}

	switch provider {
	case ProviderLocal:
		logger.Info("Using local feedback heuristic")
		return NewHeuristic(0), nil
	case ProviderOpenAI:
		if opts.OpenAIKey == "" {
			logger.Warn("OpenAI feedback selected without OPENAI_API_KEY")
			return Unconfigured{Provider: provider}, nil
		}
		logger.Info("Using OpenAI feedback", zap.String("model", opts.OpenAIModel))
		return NewChatGPT(opts.OpenAIKey, opts.OpenAIModel, WithLimiter(limiter))
	case ProviderGemini:
		if opts.GeminiKey == "" {
			logger.Warn("Gemini feedback selected without GEMINI_API_KEY")
			return Unconfigured{Provider: provider}, nil
		}
		logger.Info("Using Gemini feedback", zap.String("model", opts.GeminiModel))
		return NewGemini(ctx, opts.GeminiKey, opts.GeminiModel, limiter)
	default:
		return nil, fmt.Errorf("unknown feedback provider %q", opts.Provider)
	}
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}
