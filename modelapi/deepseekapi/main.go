package deepseekapi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"vocabtextdev/logger"
	"vocabtextdev/modelapi"
)

type DeepSeekConnectProps struct {
	Logger  *logger.LogMiddleware
	APIKey  string
	BaseURL string
	Model   string
}

// DeepSeek talks to any OpenAI-compatible chat completions endpoint.
type DeepSeek struct {
	logger    *logger.LogMiddleware
	semaphore *semaphore.Weighted
	client    *openai.Client
	model     string
}

func Connect(ctx context.Context, args DeepSeekConnectProps) *DeepSeek {
	tracer := otel.Tracer("deepseekapi/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	baseURL := strings.TrimRight(args.BaseURL, "/")
	if baseURL == "" {
		baseURL = modelapi.DEEPSEEK_BASE_URL
	}
	model := args.Model
	if model == "" {
		model = modelapi.DEEPSEEK_MODEL_NAME
	}

	maxWorkers := modelapi.MAX_CONCURRENT_REQUESTS
	sem := semaphore.NewWeighted(int64(maxWorkers))

	span.SetAttributes(
		attribute.Int("maxWorkers", maxWorkers),
		attribute.String("baseURL", baseURL),
		attribute.String("model", model),
	)

	// Generation is a single best-effort attempt; failures are reported to the user.
	client := openai.NewClient(
		option.WithAPIKey(args.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)

	args.Logger.Logger(ctx).Info("[DeepSeekAPI] Client configured", zap.String("base_url", baseURL), zap.String("model", model))

	return &DeepSeek{logger: args.Logger, semaphore: sem, client: &client, model: model}
}

func (d *DeepSeek) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	tracer := otel.Tracer("deepseekapi/Complete")
	ctx, span := tracer.Start(ctx, "Complete")
	defer span.End()

	span.SetAttributes(
		attribute.String("request.model", d.model),
		attribute.Int("prompt.length", len(userPrompt)),
	)

	if err := d.semaphore.Acquire(ctx, 1); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer d.semaphore.Release(1)

	resp, err := d.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: d.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(modelapi.GENERATION_TEMPERATURE),
	})
	if err != nil {
		span.RecordError(err)
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			d.logger.Logger(ctx).Error("[DeepSeekAPI] Request rejected",
				zap.Int("status", apiErr.StatusCode),
				zap.String("message", apiErr.Message),
			)
			return "", fmt.Errorf("deepseek request failed (status=%d): %w", apiErr.StatusCode, err)
		}
		d.logger.Logger(ctx).Error("[DeepSeekAPI] Request failed", zap.Error(err))
		return "", fmt.Errorf("deepseek request failed: %w", err)
	}

	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		span.AddEvent("EmptyResponse")
		return "", fmt.Errorf("no response received")
	}

	span.AddEvent("Request successful")
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
