package geminiapi

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"google.golang.org/genai"

	"vocabtextdev/logger"
	"vocabtextdev/modelapi"
)

type GeminiConnectProps struct {
	Logger  *logger.LogMiddleware
	APIKey  string
	Model   string
	BaseURL string
}

type Gemini struct {
	logger    *logger.LogMiddleware
	semaphore *semaphore.Weighted
	client    *genai.Client
	model     string
}

func Connect(ctx context.Context, args GeminiConnectProps) (*Gemini, error) {
	tracer := otel.Tracer("geminiapi/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()
	args.Logger.Logger(ctx).Info("[GeminiAPI] Connecting Gemini API client")

	model := args.Model
	if model == "" {
		model = modelapi.GEMINI_MODEL_NAME
	}

	maxWorkers := modelapi.MAX_CONCURRENT_REQUESTS
	span.SetAttributes(attribute.Int("maxWorkers", maxWorkers), attribute.String("model", model))

	clientConfig := &genai.ClientConfig{
		APIKey:  args.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if args.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: args.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		span.RecordError(err)
		args.Logger.Logger(ctx).Error("[GeminiAPI] Could not create Gemini client", zap.Error(err))
		return nil, fmt.Errorf("could not create gemini client: %w", err)
	}

	return &Gemini{
		logger:    args.Logger,
		semaphore: semaphore.NewWeighted(int64(maxWorkers)),
		client:    client,
		model:     model,
	}, nil
}

func (g *Gemini) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	tracer := otel.Tracer("geminiapi/Complete")
	ctx, span := tracer.Start(ctx, "Complete")
	defer span.End()
	g.logger.Logger(ctx).Info("[GeminiAPI] Complete called", zap.Int("prompt.length", len(userPrompt)))

	if err := g.semaphore.Acquire(ctx, 1); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer g.semaphore.Release(1)

	thinkingBudget := int32(0)
	temperature := float32(modelapi.GENERATION_TEMPERATURE)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userPrompt), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		ResponseMIMEType:  "application/json",
		Temperature:       &temperature,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
	})
	if err != nil {
		span.RecordError(err)
		g.logger.Logger(ctx).Error("[GeminiAPI] Error generating LLM content", zap.Error(err))
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := ""
	if resp != nil {
		text = strings.TrimSpace(resp.Text())
	}
	if text == "" {
		g.logger.Logger(ctx).Warn("[GeminiAPI] Received empty or invalid LLM response")
		span.AddEvent("EmptyResponse")
		return "", fmt.Errorf("no response received")
	}

	span.AddEvent("LLM generation successful")
	return text, nil
}
