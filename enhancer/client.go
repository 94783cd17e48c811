// Package enhancer turns normalized products into AI-derived field sets.
package enhancer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-enrich-products/metrics"
	"github.com/aluiziolira/go-enrich-products/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Generator produces free-form text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f(ctx, prompt).
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Options tunes a Client. Zero values disable the corresponding feature.
type Options struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	CacheSize       int
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
}

// Client wraps a Generator with prompting, parsing, validation and fallback.
type Client struct {
	gen     Generator
	opts    Options
	cache   *lru.Cache[string, models.AIFields]
	metrics *metrics.Metrics
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewClient builds a Client around gen.
func NewClient(gen Generator, opts Options) (*Client, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if opts.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must be non-negative")
	}
	c := &Client{
		gen:     gen,
		opts:    opts,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		sleep:   sleepContext,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, models.AIFields](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create response cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// Enhance returns the AI field set for p. It never fails: every error path
// yields Fallback(p).
func (c *Client) Enhance(ctx context.Context, p *models.Product) (fields models.AIFields) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("enhancement panicked", slog.String("product_id", productID(p)), slog.Any("panic", rec))
			c.metrics.IncEnhancement("fallback")
			c.metrics.IncEnhancementFailure("panic")
			fields = Fallback(p)
		}
	}()

	if p == nil {
		return Fallback(nil)
	}
	prompt := BuildPrompt(p)
	key := cacheKey(p, prompt)

	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			c.metrics.IncEnhancement("cached")
			return withPrice(cloneFields(cached), p)
		}
	}

	start := time.Now()
	text, err := c.generate(ctx, prompt)
	c.metrics.ObserveGenerate(time.Since(start))
	if err == nil {
		fields, err = ParseResponse(text)
	}
	if err != nil {
		label := FailureLabel(err)
		c.logger.Warn("enhancement failed, using defaults",
			slog.String("product_id", p.ProductID),
			slog.String("product", p.DisplayName()),
			slog.String("reason", label),
			slog.Any("error", err),
		)
		c.metrics.IncEnhancement("fallback")
		c.metrics.IncEnhancementFailure(label)
		return Fallback(p)
	}

	Validate(&fields)
	if c.cache != nil {
		c.cache.Add(key, cloneFields(fields))
	}
	c.metrics.IncEnhancement("ai")
	c.logger.Debug("product enhanced",
		slog.String("product_id", p.ProductID),
		slog.String("category", fields.MainCategory),
	)
	return withPrice(fields, p)
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			c.metrics.IncRetries()
			delay := c.backoff(attempt)
			c.logger.Debug("retrying generator call",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.Any("error", lastErr),
			)
			if err := c.sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		text, err := c.call(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = classifyError(err)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !retryable(lastErr) {
			return "", lastErr
		}
	}
	return "", lastErr
}

func (c *Client) call(ctx context.Context, prompt string) (string, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}
	return c.gen.Generate(ctx, prompt)
}

func (c *Client) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := c.opts.RetryBackoff
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := c.opts.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

// withPrice applies the product's price as the normalized unit price.
func withPrice(f models.AIFields, p *models.Product) models.AIFields {
	if p != nil && p.CurrentPrice > 0 {
		f.UnitPriceNormalized = p.CurrentPrice
	}
	return f
}

// cacheKey scopes cached responses to one product of one store.
func cacheKey(p *models.Product, prompt string) string {
	return p.StoreName + "/" + p.ProductID + "\n" + prompt
}

func productID(p *models.Product) string {
	if p == nil {
		return ""
	}
	return p.ProductID
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
