package llm

import (
	"context"
	"fmt"

	"github.com/Rrens/social-content-generator/internal/retry"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Client performs text generation against one provider and always yields usable content
type Client struct {
	provider Provider
	limiter  *Limiter
	clock    clockwork.Clock
	policy   retry.Policy
}

// Option configures a Client
type Option func(*Client)

// WithClock sets the clock used for backoff waits
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithLimiter attaches a local rate limiter
func WithLimiter(l *Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithPolicy overrides the retry policy
func WithPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// NewClient creates a resilient client. A nil provider means fallback-only operation.
func NewClient(provider Provider, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		clock:    clockwork.NewRealClock(),
		policy:   retry.DefaultPolicy,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProviderName returns the name of the remote provider, or "fallback"
func (c *Client) ProviderName() string {
	if c.provider == nil {
		return "fallback"
	}
	return c.provider.Name()
}

// Configured reports whether remote calls will be attempted at all
func (c *Client) Configured() bool {
	return c.provider != nil && c.provider.IsConfigured()
}

// Generate returns remote content when any attempt succeeds and local fallback content
// otherwise. It never returns an error and never returns an empty string.
func (c *Client) Generate(ctx context.Context, req Request) Result {
	if !c.Configured() {
		log.Debug().Str("task", string(req.Task)).Msg("No generation provider configured, using fallback")
		return c.fallback(req, 0, ErrNotConfigured)
	}

	prompt := BuildPrompt(req)
	name := c.provider.Name()

	var text string
	attempts, err := retry.Do(ctx, c.clock, c.policy, func(ctx context.Context, attempt int) error {
		if c.limiter != nil && !c.limiter.Allow() {
			return retry.Terminal(ErrRateLimited)
		}

		out, err := c.call(ctx, prompt)
		if err == nil {
			out = CleanOutput(out)
			if out == "" {
				err = &RemoteError{Provider: name, Message: "empty output", Err: ErrMalformedResponse}
			}
		}
		if err != nil {
			class := Classify(err)
			log.Warn().
				Err(err).
				Str("provider", name).
				Str("task", string(req.Task)).
				Int("attempt", attempt).
				Str("class", class.String()).
				Msg("Generation attempt failed")
			if class == ClassTerminal {
				return retry.Terminal(err)
			}
			return err
		}

		text = out
		return nil
	})
	if err != nil {
		return c.fallback(req, attempts, err)
	}

	return Result{
		Text:     text,
		Attempts: attempts,
		Provider: name,
	}
}

// call shields the retry loop from provider panics
func (c *Client) call(ctx context.Context, prompt string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RemoteError{Provider: c.provider.Name(), Message: fmt.Sprint(r), Err: ErrMalformedResponse}
		}
	}()
	return c.provider.GenerateText(ctx, prompt)
}

func (c *Client) fallback(req Request, attempts int, cause error) Result {
	if attempts > 0 {
		log.Info().
			Err(cause).
			Str("task", string(req.Task)).
			Int("attempts", attempts).
			Msg("Falling back to local content")
	}
	return Result{
		Text:         Fallback(req),
		UsedFallback: true,
		Attempts:     attempts,
		Provider:     "fallback",
	}
}
