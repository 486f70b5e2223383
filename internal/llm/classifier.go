package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/the-bills-must-flow/internal/common"
	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/Veraticus/the-bills-must-flow/internal/service"
)

var _ service.Classifier = (*Classifier)(nil)

// Classifier implements service.Classifier on top of a chat-completion Client.
type Classifier struct {
	client      Client
	cache       *suggestionCache
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
}

// NewClassifier creates a new LLM-based classifier for the configured provider.
func NewClassifier(ctx context.Context, cfg Config, logger *slog.Logger) (*Classifier, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewClassifierWithClient(client, cfg, logger), nil
}

// NewClassifierWithClient wraps an existing client with caching, rate limiting and retries.
func NewClassifierWithClient(client Client, cfg Config, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Classifier{
		client:      client,
		cache:       newSuggestionCache(cfg.CacheTTL),
		logger:      logger,
		retryOpts:   retryOpts,
		rateLimiter: newRateLimiter(cfg.RateLimit),
	}
}

// ClassifyBatch suggests categories for every item in req. Items answered
// earlier with the same description, flow and hints are served from the cache;
// the remainder go out in a single request.
func (c *Classifier) ClassifyBatch(ctx context.Context, req service.BatchRequest) (map[string]model.Suggestion, error) {
	results := make(map[string]model.Suggestion, len(req.Items))
	pending := make([]service.BatchItem, 0, len(req.Items))
	hints := strings.Join(req.Personalizations, "\n")

	for _, item := range req.Items {
		if s, ok := c.cache.get(cacheKey(item, hints)); ok {
			results[item.Token] = s
			continue
		}
		pending = append(pending, item)
	}

	if len(pending) == 0 {
		c.logger.Debug("batch served from cache", "items", len(req.Items))
		return results, nil
	}

	outbound := req
	outbound.Items = pending
	prompt, err := buildPrompt(outbound)
	if err != nil {
		return nil, err
	}

	var suggestions map[string]model.Suggestion
	err = common.WithRetry(ctx, func() error {
		if err := c.rateLimiter.wait(ctx); err != nil {
			return common.Permanent(err)
		}

		content, err := c.client.Complete(ctx, systemPrompt, prompt)
		if err != nil {
			return err
		}

		decoded, err := DecodeSuggestions(content)
		if err != nil {
			c.logger.Debug("undecodable model reply", "content", truncate(content, 500))
			return common.Permanent(err)
		}
		suggestions = decoded
		return nil
	}, c.retryOpts)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to classify batch of %d: %w", len(pending), err)
	}

	for _, item := range pending {
		s, ok := suggestions[item.Token]
		if !ok {
			continue
		}
		c.cache.set(cacheKey(item, hints), s)
		results[item.Token] = s
	}

	c.logger.Info("batch classified",
		"requested", len(pending),
		"cached", len(req.Items)-len(pending),
		"answered", len(results))

	return results, nil
}

// Close releases the background goroutines.
func (c *Classifier) Close() {
	c.cache.Close()
	c.rateLimiter.Close()
}

func cacheKey(item service.BatchItem, hints string) string {
	return item.Description + "\x00" + string(item.Flow) + "\x00" + hints
}
