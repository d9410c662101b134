package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/iamvkosarev/ye-chat/config"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

var (
	ErrEmptyResponse = errors.New("empty response from model")
)

// SafetyCategories are always sent with the threshold set to BLOCK_NONE.
var SafetyCategories = []genai.HarmCategory{
	genai.HarmCategoryHateSpeech,
	genai.HarmCategoryHarassment,
	genai.HarmCategoryDangerousContent,
	genai.HarmCategorySexuallyExplicit,
}

type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

type GeminiUsecase struct {
	models contentGenerator
	cfg    config.Gemini
	logger *zap.Logger
}

func NewGeminiUsecase(ctx context.Context, apiKey string, cfg config.Gemini, logger *zap.Logger) (*GeminiUsecase, error) {
	if apiKey == "" {
		return nil, config.ErrNoAPIKey
	}
	client, err := genai.NewClient(
		ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newGeminiUsecase(client.Models, cfg, logger), nil
}

func newGeminiUsecase(models contentGenerator, cfg config.Gemini, logger *zap.Logger) *GeminiUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiUsecase{
		models: models,
		cfg:    cfg,
		logger: logger,
	}
}

func (g *GeminiUsecase) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.models.GenerateContent(
		ctx, g.cfg.Model, genai.Text(prompt), NewGenerateContentConfig(g.cfg),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	if resp.UsageMetadata != nil {
		g.logger.Debug(
			"content generated",
			zap.String("model", g.cfg.Model),
			zap.Int32("prompt_tokens", resp.UsageMetadata.PromptTokenCount),
			zap.Int32("candidate_tokens", resp.UsageMetadata.CandidatesTokenCount),
		)
	}
	return text, nil
}

func NewGenerateContentConfig(cfg config.Gemini) *genai.GenerateContentConfig {
	safetySettings := make([]*genai.SafetySetting, 0, len(SafetyCategories))
	for _, category := range SafetyCategories {
		safetySettings = append(
			safetySettings, &genai.SafetySetting{
				Category:  category,
				Threshold: genai.HarmBlockThresholdBlockNone,
			},
		)
	}
	return &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(cfg.Temperature),
		TopP:             genai.Ptr(cfg.TopP),
		TopK:             genai.Ptr(cfg.TopK),
		MaxOutputTokens:  cfg.MaxOutputTokens,
		ResponseMIMEType: cfg.ResponseMIMEType,
		SafetySettings:   safetySettings,
	}
}
