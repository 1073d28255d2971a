// Package imagegen generates images through the BRIA text-to-image API with a local
// placeholder fallback.
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Rrens/social-content-generator/internal/config"
	"github.com/Rrens/social-content-generator/internal/domain"
	"github.com/Rrens/social-content-generator/internal/llm"
	"github.com/Rrens/social-content-generator/internal/retry"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL     = "https://engine.prod.bria-api.com/v1"
	defaultModel       = "2.3"
	defaultAspectRatio = "1:1"
	providerName       = "bria"
)

// ErrUnsupportedAspectRatio is returned for ratios BRIA does not render
var ErrUnsupportedAspectRatio = errors.New("unsupported aspect ratio")

var aspectSizes = map[string][2]int{
	"1:1":  {1024, 1024},
	"2:3":  {832, 1248},
	"3:2":  {1248, 832},
	"3:4":  {896, 1152},
	"4:3":  {1152, 896},
	"4:5":  {896, 1120},
	"5:4":  {1120, 896},
	"9:16": {768, 1344},
	"16:9": {1344, 768},
}

// Request describes one image generation
type Request struct {
	Prompt      string
	AspectRatio string
	NumResults  int
}

// Result is always usable: remote URLs or a deterministic placeholder
type Result struct {
	Images       []string
	UsedFallback bool
	Attempts     int
}

// Client calls BRIA with the shared retry policy
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	clock   clockwork.Clock
	policy  retry.Policy
	limiter *llm.Limiter
}

// Option configures a Client
type Option func(*Client)

func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

func WithLimiter(l *llm.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

func WithPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a BRIA client
func NewClient(cfg config.BriaConfig, opts ...Option) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		clock:   clockwork.NewRealClock(),
		policy:  retry.DefaultPolicy,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is present
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

// NormalizeAspectRatio validates ratio, defaulting an empty value to 1:1
func NormalizeAspectRatio(ratio string) (string, error) {
	ratio = strings.TrimSpace(ratio)
	if ratio == "" {
		return defaultAspectRatio, nil
	}
	if _, ok := aspectSizes[ratio]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAspectRatio, ratio)
	}
	return ratio, nil
}

// Generate returns BRIA image URLs or, when every attempt fails, a placeholder
func (c *Client) Generate(ctx context.Context, req Request) Result {
	ratio, err := NormalizeAspectRatio(req.AspectRatio)
	if err != nil {
		ratio = defaultAspectRatio
	}
	req.AspectRatio = ratio
	if req.NumResults < 1 {
		req.NumResults = 1
	}

	if !c.Configured() {
		log.Debug().Msg("BRIA API key not configured, using placeholder image")
		return Result{Images: []string{Placeholder(req)}, UsedFallback: true}
	}

	var urls []string
	attempts, err := retry.Do(ctx, c.clock, c.policy, func(ctx context.Context, attempt int) error {
		if c.limiter != nil && !c.limiter.Allow() {
			return retry.Terminal(llm.ErrRateLimited)
		}

		out, err := c.textToImage(ctx, req)
		if err != nil {
			class := llm.Classify(err)
			log.Warn().
				Err(err).
				Int("attempt", attempt).
				Str("class", class.String()).
				Msg("Image generation attempt failed")
			if class == llm.ClassTerminal {
				return retry.Terminal(err)
			}
			return err
		}
		urls = out
		return nil
	})
	if err != nil {
		log.Info().Err(err).Int("attempts", attempts).Msg("Falling back to placeholder image")
		return Result{Images: []string{Placeholder(req)}, UsedFallback: true, Attempts: attempts}
	}

	return Result{Images: urls, Attempts: attempts}
}

type textToImageRequest struct {
	Prompt      string `json:"prompt"`
	NumResults  int    `json:"num_results"`
	AspectRatio string `json:"aspect_ratio"`
	Sync        bool   `json:"sync"`
}

type textToImageResponse struct {
	Result []struct {
		URLs []string `json:"urls"`
	} `json:"result"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) textToImage(ctx context.Context, req Request) ([]string, error) {
	body, err := json.Marshal(textToImageRequest{
		Prompt:      req.Prompt,
		NumResults:  req.NumResults,
		AspectRatio: req.AspectRatio,
		Sync:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/text-to-image/base/" + defaultModel
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api_token", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &llm.RemoteError{Provider: providerName, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &llm.RemoteError{Provider: providerName, StatusCode: resp.StatusCode, Message: err.Error(), Err: err}
	}

	var parsed textToImageResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode != http.StatusOK {
		message := http.StatusText(resp.StatusCode)
		if decodeErr == nil && (parsed.Message != "" || parsed.Error != "") {
			message = strings.TrimSpace(parsed.Error + " " + parsed.Message)
		}
		return nil, &llm.RemoteError{Provider: providerName, StatusCode: resp.StatusCode, Message: message}
	}
	if decodeErr != nil {
		return nil, &llm.RemoteError{Provider: providerName, StatusCode: resp.StatusCode, Message: "failed to decode response", Err: llm.ErrMalformedResponse}
	}

	var urls []string
	for _, r := range parsed.Result {
		for _, u := range r.URLs {
			if u != "" {
				urls = append(urls, u)
			}
		}
	}
	if len(urls) == 0 {
		return nil, &llm.RemoteError{Provider: providerName, StatusCode: resp.StatusCode, Message: "no images in response", Err: llm.ErrMalformedResponse}
	}
	return urls, nil
}

// Placeholder returns a deterministic placeholder image URL sized for the aspect ratio
func Placeholder(req Request) string {
	size, ok := aspectSizes[req.AspectRatio]
	if !ok {
		size = aspectSizes[defaultAspectRatio]
	}
	text := domain.Truncate(strings.TrimSpace(req.Prompt), 40)
	if text == "" {
		text = "Image unavailable"
	}
	return fmt.Sprintf("https://placehold.co/%dx%d/png?text=%s", size[0], size[1], url.QueryEscape(text))
}
