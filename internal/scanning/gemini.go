package scanning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Gemini implements the Engine interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini engine
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// Name returns the engine id
func (g *Gemini) Name() string {
	return "gemini"
}

// Recognize transcribes the lines of a PNG image
func (g *Gemini) Recognize(ctx context.Context, image []byte, language string) ([]Line, error) {
	// genai.ImageData expects just the format suffix (e.g., "png"), not the full MIME type
	parts := []genai.Part{
		genai.ImageData("png", image),
		genai.Text(promptFor(language)),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, classifyGeminiError(g.Name(), err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, newEngineError(g.Name(), KindNoTextFound, errors.New("no response from gemini"))
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	lines, err := parseTranscription(responseText.String(), g.Name())
	if err != nil {
		return nil, newEngineError(g.Name(), KindTransport, fmt.Errorf("parsing transcription: %w", err))
	}
	if len(lines) == 0 {
		return nil, newEngineError(g.Name(), KindNoTextFound, nil)
	}

	return lines, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}

const (
	apiKeyInvalidReason  = "API_KEY_INVALID"
	apiKeyInvalidMessage = "api key not valid"
)

// classifyGeminiError maps REST and gRPC failures onto engine error kinds
func classifyGeminiError(engine string, err error) *EngineError {
	if invalidAPIKey(err) {
		return newEngineError(engine, KindUnauthorized, err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(engine, apiErr.Code, apiErr.Message)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newEngineError(engine, KindTimeout, err)
	}

	st, ok := status.FromError(err)
	if !ok {
		return classifyRequestError(engine, err)
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return newEngineError(engine, KindUnauthorized, err)
	case codes.ResourceExhausted:
		return newEngineError(engine, KindQuotaExceeded, err)
	case codes.InvalidArgument:
		return newEngineError(engine, KindMalformedImage, err)
	case codes.DeadlineExceeded:
		return newEngineError(engine, KindTimeout, err)
	}
	return newEngineError(engine, KindTransport, err)
}

// invalidAPIKey reports whether Google rejected the key itself. That arrives
// as INVALID_ARGUMENT / 400 with reason API_KEY_INVALID, not as 401.
func invalidAPIKey(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		for _, item := range apiErr.Errors {
			if item.Reason == apiKeyInvalidReason {
				return true
			}
		}
		return hasInvalidKeyReason(apiErr.Details) ||
			mentionsInvalidKey(apiErr.Message) || mentionsInvalidKey(apiErr.Body)
	}
	if st, ok := status.FromError(err); ok && st.Code() == codes.InvalidArgument {
		return hasInvalidKeyReason(st.Details()) || mentionsInvalidKey(st.Message())
	}
	return false
}

func hasInvalidKeyReason(details []any) bool {
	for _, d := range details {
		switch v := d.(type) {
		case interface{ GetReason() string }:
			if v.GetReason() == apiKeyInvalidReason {
				return true
			}
		case map[string]any:
			if v["reason"] == apiKeyInvalidReason {
				return true
			}
		}
	}
	return false
}

func mentionsInvalidKey(text string) bool {
	return strings.Contains(text, apiKeyInvalidReason) || strings.Contains(strings.ToLower(text), apiKeyInvalidMessage)
}
