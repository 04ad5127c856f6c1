package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash"

type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float64
	MaxOutputTokens int
}

// contentGenerator is the slice of *genai.Models the completer uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini completes through the Gemini API.
type Gemini struct {
	models contentGenerator
	cfg    GeminiConfig
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("textgen: gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("textgen: create gemini client: %w", err)
	}
	return &Gemini{models: client.Models, cfg: cfg}, nil
}

func (g *Gemini) Complete(ctx context.Context, req Request) (Response, error) {
	req, err := Normalize(req)
	if err != nil {
		return Response{}, err
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		contents = append(contents, &genai.Content{
			Role:  m.Role,
			Parts: []*genai.Part{{Text: m.Text}},
		})
	}

	resp, err := g.models.GenerateContent(ctx, g.cfg.Model, contents, g.generateConfig(req.System))
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		return Response{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	reply, err := replyText(resp)
	if err != nil {
		return Response{}, err
	}
	return Response{Reply: reply}, nil
}

func (g *Gemini) generateConfig(system string) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	if g.cfg.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(g.cfg.Temperature))
	}
	if g.cfg.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(g.cfg.MaxOutputTokens)
	}
	return config
}

// replyText joins the text parts of the first candidate, skipping thoughts.
func replyText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrUpstream)
	}
	c := resp.Candidates[0]
	if c.Content == nil {
		return "", fmt.Errorf("%w: candidate without content (finish reason %s)", ErrUpstream, c.FinishReason)
	}

	var b strings.Builder
	for _, part := range c.Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		b.WriteString(part.Text)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: no text in response", ErrUpstream)
	}
	return b.String(), nil
}
