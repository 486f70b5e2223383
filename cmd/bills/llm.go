package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Veraticus/the-bills-must-flow/internal/classification"
	"github.com/Veraticus/the-bills-must-flow/internal/common"
	"github.com/Veraticus/the-bills-must-flow/internal/llm"
	"github.com/Veraticus/the-bills-must-flow/internal/service"
	"github.com/spf13/viper"
)

// providerBayes selects the offline classifier trained on stored records.
const providerBayes = "bayes"

// apiKeyEnv names the fallback environment variable per provider.
var apiKeyEnv = map[string]string{
	llm.ProviderOpenAI:    "OPENAI_API_KEY",
	llm.ProviderAnthropic: "ANTHROPIC_API_KEY",
	llm.ProviderGemini:    "GEMINI_API_KEY",
}

// llmConfig builds the provider configuration from viper.
func llmConfig() (llm.Config, error) {
	provider := strings.ToLower(viper.GetString("llm.provider"))
	if provider == "" {
		provider = llm.ProviderOpenAI
	}

	cfg := llm.Config{
		Provider:    provider,
		APIKey:      viper.GetString("llm.api_key"),
		Model:       viper.GetString("llm.model"),
		BaseURL:     viper.GetString("llm.base_url"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
		Timeout:     viper.GetDuration("llm.timeout"),
		MaxRetries:  viper.GetInt("llm.max_retries"),
		RetryDelay:  viper.GetDuration("llm.retry_delay"),
		CacheTTL:    viper.GetDuration("llm.cache_ttl"),
		RateLimit:   viper.GetInt("llm.rate_limit"),
	}

	env, ok := apiKeyEnv[provider]
	if !ok {
		return cfg, fmt.Errorf("%w: unsupported LLM provider %q", common.ErrInvalidConfig, provider)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(env)
	}
	if cfg.APIKey == "" {
		return cfg, common.NewUserError(
			fmt.Sprintf("no API key for %s: set llm.api_key or %s", provider, env),
			common.ErrMissingConfig)
	}
	return cfg, nil
}

// createClassifier returns the configured classifier and a function releasing it.
// offline forces the history-trained classifier.
func createClassifier(ctx context.Context, history classification.HistorySource, offline bool) (service.Classifier, func(), error) {
	if offline || strings.EqualFold(viper.GetString("llm.provider"), providerBayes) {
		return classification.NewBayes(history, slog.Default()), func() {}, nil
	}

	cfg, err := llmConfig()
	if err != nil {
		return nil, nil, err
	}

	classifier, err := llm.NewClassifier(ctx, cfg, slog.Default())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM classifier: %w", err)
	}
	return classifier, classifier.Close, nil
}
