// Package content produces personalized message text via a
// generative model, with strict validation guardrails and
// deterministic fallback templates so the pipeline always has usable
// content even when the model is unavailable or returns malformed
// output.
package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Separator joins the two segments of message types that tolerate a
// two-part send.
const Separator = "|||"

// Context is the bundle of attendee, event and entity details the
// generator personalizes from.
type Context struct {
	AttendeeName  string
	EventName     string
	EventLocation string
	SpeakerName   string
	SessionTitle  string
	MinutesUntil  int
	SponsorName   string
	Booth         string
	Offering      string
	PeerName      string
	PeerCompany   string
	MatchReason   string
}

// Config for the generator.
type Config struct {
	APIKey          string
	ModelName       string // Default: "gemini-2.0-flash-exp"
	MaxOutputTokens int32
	Timeout         time.Duration
}

// Generator wraps the Gemini API client. A Generator with a nil
// model (see NewFallbackGenerator) serves fallback templates only.
type Generator struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	logger    *zap.Logger
	modelName string
	timeout   time.Duration
}

// NewGenerator creates a generator backed by the Gemini API.
func NewGenerator(cfg Config, logger *zap.Logger) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("generator API key is required")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-2.0-flash-exp"
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = 220
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SystemInstruction)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.7),
		TopP:            genai.Ptr[float32](0.9),
		TopK:            genai.Ptr[int32](40),
		MaxOutputTokens: genai.Ptr[int32](cfg.MaxOutputTokens),
	}

	logger.Info("Content generator initialized", zap.String("model", cfg.ModelName))

	return &Generator{
		client:    client,
		model:     model,
		logger:    logger,
		modelName: cfg.ModelName,
		timeout:   cfg.Timeout,
	}, nil
}

// NewFallbackGenerator creates a generator that never calls the
// model and always serves the deterministic templates. Used when the
// generative service is disabled in configuration.
func NewFallbackGenerator(logger *zap.Logger) *Generator {
	return &Generator{logger: logger, modelName: "fallback"}
}

// Close closes the underlying API client.
func (g *Generator) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Generate produces validated message text for the given type. Any
// failure (API error, timeout, malformed or guardrail-violating
// output) is returned as an error; generation is never retried.
func (g *Generator) Generate(ctx context.Context, msgType, intent string, c Context) (string, error) {
	if g.model == nil {
		return "", fmt.Errorf("generative model disabled")
	}

	genCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := BuildPrompt(msgType, intent, c)
	resp, err := g.model.GenerateContent(genCtx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}
	textPart, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response type from gemini")
	}

	text := cleanResponse(string(textPart))
	if err := Validate(msgType, text); err != nil {
		return "", fmt.Errorf("generated content failed validation: %w", err)
	}
	return text, nil
}

// Compose resolves final message text: generated when possible,
// falling back to the deterministic template for the type on any
// failure. It never returns empty content.
func (g *Generator) Compose(ctx context.Context, msgType, intent string, c Context) string {
	text, err := g.Generate(ctx, msgType, intent, c)
	if err != nil {
		if g.model != nil {
			g.logger.Warn("Falling back to template content",
				zap.String("message_type", msgType), zap.Error(err))
		}
		return Fallback(msgType, intent, c)
	}
	return text
}

// cleanResponse strips wrapping quotation and markdown fences the
// model sometimes adds around the message text.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	for _, q := range []string{`"`, "'", "“", "‘"} {
		closer := q
		switch q {
		case "“":
			closer = "”"
		case "‘":
			closer = "’"
		}
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, closer) && len(s) > len(q)+len(closer) {
			s = s[len(q) : len(s)-len(closer)]
			break
		}
	}
	return strings.TrimSpace(s)
}
