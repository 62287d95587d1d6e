package suggest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// GeminiClassifier calls Gemini through the genai SDK. The API key is
// taken from the environment by the SDK; the client is constructed
// explicitly and injected, never loaded from package-level state.
type GeminiClassifier struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiClassifier creates a classifier bound to one model. A
// non-positive timeout disables the per-call bound and leaves deadlines
// to the caller.
func NewGeminiClassifier(ctx context.Context, model string, timeout time.Duration) (*GeminiClassifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &GeminiClassifier{client: client, model: model, timeout: timeout}, nil
}

func (g *GeminiClassifier) Classify(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model %q", g.model)
	}
	return text, nil
}

var _ Classifier = (*GeminiClassifier)(nil)

// DisabledClassifier stands in when no model is configured. Every call
// fails, which callers surface as a suggestion outage.
type DisabledClassifier struct{}

func (DisabledClassifier) Classify(context.Context, string) (string, error) {
	return "", errors.New("no classifier configured")
}

var _ Classifier = DisabledClassifier{}
