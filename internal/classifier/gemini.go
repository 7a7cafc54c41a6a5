package classifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ecosort/recycle-assistant/internal/domain"
	"github.com/ecosort/recycle-assistant/internal/logging"
	"github.com/ecosort/recycle-assistant/internal/metrics"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

const (
	breakerName = "gemini"
	apiVersion  = "v1beta"
)

var ErrCircuitOpen = fmt.Errorf("%w: classifier temporarily unavailable", domain.ErrUpstream)

type GeminiConfig struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
	Prompt   string

	// FailureThreshold consecutive failures open the breaker for Cooldown.
	FailureThreshold uint32
	Cooldown         time.Duration

	HTTPClient *http.Client
}

// GeminiClient calls generateContent on a Gemini model through the genai SDK.
type GeminiClient struct {
	cfg    GeminiConfig
	client *genai.Client
	cb     *gobreaker.CircuitBreaker[*Result]
}

// NewGeminiClient builds the SDK client. Endpoint overrides the API base URL
// when set.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.Endpoint,
			APIVersion: apiVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	threshold := cfg.FailureThreshold
	cb := gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A caller giving up is not an upstream failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &GeminiClient{cfg: cfg, client: client, cb: cb}, nil
}

func (c *GeminiClient) ModelName() string { return c.cfg.Model }

func (c *GeminiClient) Prompt() string { return c.cfg.Prompt }

func (c *GeminiClient) Classify(ctx context.Context, image []byte, mimeType string) (*Result, error) {
	start := time.Now()
	result, err := c.cb.Execute(func() (*Result, error) {
		return c.generate(ctx, image, mimeType)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordClassifierCall("rejected", 0)
			return nil, ErrCircuitOpen
		}
		metrics.RecordClassifierCall("error", time.Since(start))
		return nil, err
	}

	outcome := "unidentified"
	if result.Identified {
		outcome = "identified"
	}
	metrics.RecordClassifierCall(outcome, time.Since(start))
	return result, nil
}

func (c *GeminiClient) generate(ctx context.Context, image []byte, mimeType string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(c.cfg.Prompt),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: no candidates", domain.ErrUpstream)
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			text.WriteString(p.Text)
		}
	}

	return ParseResult(text.String())
}

// ParseResult decodes model output into a Result. Markdown code fences
// around the JSON are tolerated.
func ParseResult(text string) (*Result, error) {
	doc := stripFences(text)
	if doc == "" {
		return nil, fmt.Errorf("%w: empty model output", domain.ErrUpstream)
	}

	var result Result
	if err := json.Unmarshal([]byte(doc), &result); err != nil {
		return nil, fmt.Errorf("%w: model output is not JSON: %v", domain.ErrUpstream, err)
	}
	if !result.Identified {
		result = Result{}
	}
	result.Raw = json.RawMessage(doc)
	return &result, nil
}

func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag, e.g. ```json
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
