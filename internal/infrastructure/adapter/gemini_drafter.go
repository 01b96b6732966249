package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/draft"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/review"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const draftSystemInstruction = `You write public replies from a business owner to customer reviews.
Rules:
- Reply in the language of the review.
- Never invent facts, offers, refunds or policies.
- Never include personal data, links, phone numbers or email addresses.
- Thank positive reviewers; acknowledge and invite negative reviewers to continue the conversation privately.
- Keep the reply under 120 words.
Respond only with JSON: {"reply": string, "variations": [string, string], "rationale": string}`

// GeminiDrafter drafts review replies with Google's Gemini models.
type GeminiDrafter struct {
	client     *genai.Client
	model      *genai.GenerativeModel
	modelName string
	logger    *slog.Logger
}

type GeminiConfig struct {
	APIKey    string
	ModelName string
}

func NewGeminiDrafter(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*GeminiDrafter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(draftSystemInstruction)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:      genai.Ptr[float32](0.7),
		TopP:             genai.Ptr[float32](0.95),
		MaxOutputTokens:  genai.Ptr[int32](800),
		ResponseMIMEType: "application/json",
	}

	logger.Info("Gemini drafter initialized", "model", cfg.ModelName)

	return &GeminiDrafter{
		client:    client,
		model:     model,
		modelName: cfg.ModelName,
		logger:    logger,
	}, nil
}

func (g *GeminiDrafter) Close() error {
	return g.client.Close()
}

// Draft makes a single model call. A failed or unparseable answer is
// returned as ErrDraftGenerationFailed and the review is marked failed.
func (g *GeminiDrafter) Draft(ctx context.Context, req draft.Request) (*review.Suggestions, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(buildDraftPrompt(req)))
	if err != nil {
		g.logger.Error("Gemini API error", "model", g.modelName, "error", err)
		return nil, fmt.Errorf("%w: gemini API error: %w", draft.ErrDraftGenerationFailed, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty response from gemini", draft.ErrDraftGenerationFailed)
	}
	textPart, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected response type from gemini", draft.ErrDraftGenerationFailed)
	}

	suggestions, err := parseDraftResponse(string(textPart))
	if err != nil {
		g.logger.Error("Failed to parse Gemini draft", "error", err)
		return nil, fmt.Errorf("%w: %w", draft.ErrDraftGenerationFailed, err)
	}
	return suggestions, nil
}

func buildDraftPrompt(req draft.Request) string {
	var b strings.Builder
	businessName := req.BusinessName
	if businessName == "" {
		businessName = "our business"
	}
	fmt.Fprintf(&b, "Business: %s\n", businessName)
	fmt.Fprintf(&b, "Tone: %s\n", req.Tone)
	if req.Platform != "" {
		fmt.Fprintf(&b, "Platform: %s\n", req.Platform)
	}
	fmt.Fprintf(&b, "Reviewer: %s\n", req.Author)
	fmt.Fprintf(&b, "Rating: %d/5 (%s)\n", req.Rating, req.Sentiment)
	if strings.TrimSpace(req.Content) == "" {
		b.WriteString("Review text: (rating only, no text)\n")
	} else {
		fmt.Fprintf(&b, "Review text: %q\n", req.Content)
	}
	b.WriteString("Write the owner's reply.")
	return b.String()
}

type draftPayload struct {
	Reply      string   `json:"reply"`
	Variations []string `json:"variations"`
	Rationale  string   `json:"rationale"`
}

func parseDraftResponse(text string) (*review.Suggestions, error) {
	cleanJSON := strings.TrimSpace(text)
	cleanJSON = strings.TrimPrefix(cleanJSON, "```json")
	cleanJSON = strings.TrimPrefix(cleanJSON, "```")
	cleanJSON = strings.TrimSuffix(cleanJSON, "```")
	cleanJSON = strings.TrimSpace(cleanJSON)

	var payload draftPayload
	if err := json.Unmarshal([]byte(cleanJSON), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse gemini response: %w", err)
	}
	reply := strings.TrimSpace(payload.Reply)
	if reply == "" {
		return nil, errors.New("gemini returned an empty reply")
	}

	variations := make([]string, 0, len(payload.Variations))
	for _, v := range payload.Variations {
		if v = strings.TrimSpace(v); v != "" {
			variations = append(variations, v)
		}
	}
	return &review.Suggestions{Draft: reply, Variations: variations, Rationale: payload.Rationale}, nil
}
