package googletts

import (
	"context"
	"encoding/base64"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"

	"vocabtextdev/logger"
	"vocabtextdev/modelapi"
	"vocabtextdev/presentation"
)

const audioEncoding = "MP3"

type GoogleTTSConnectProps struct {
	Logger          *logger.LogMiddleware
	CredentialsFile string
	// ClientOptions replace the credentials file, e.g. to point at a test endpoint.
	ClientOptions []option.ClientOption
}

type GoogleTTS struct {
	logger    *logger.LogMiddleware
	semaphore *semaphore.Weighted
	service   *texttospeech.Service
}

func Connect(ctx context.Context, args GoogleTTSConnectProps) (*GoogleTTS, error) {
	tracer := otel.Tracer("googletts/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	opts := args.ClientOptions
	if len(opts) == 0 {
		opts = []option.ClientOption{option.WithCredentialsFile(args.CredentialsFile)}
	}

	service, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		span.RecordError(err)
		args.Logger.Logger(ctx).Error("[GoogleTTS] Could not create Text-to-Speech client", zap.Error(err))
		return nil, fmt.Errorf("could not create text-to-speech client: %w", err)
	}

	maxWorkers := modelapi.MAX_CONCURRENT_REQUESTS
	span.SetAttributes(attribute.Int("maxWorkers", maxWorkers))

	return &GoogleTTS{
		logger:    args.Logger,
		semaphore: semaphore.NewWeighted(int64(maxWorkers)),
		service:   service,
	}, nil
}

func (g *GoogleTTS) Synthesize(ctx context.Context, req presentation.SpeechRequest) ([]byte, error) {
	tracer := otel.Tracer("googletts/Synthesize")
	ctx, span := tracer.Start(ctx, "Synthesize")
	defer span.End()

	span.SetAttributes(
		attribute.String("voice", req.VoiceID),
		attribute.String("locale", req.Locale),
		attribute.Float64("speaking_rate", req.SpeakingRate),
		attribute.Int("text.length", len(req.Text)),
	)

	if err := g.semaphore.Acquire(ctx, 1); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer g.semaphore.Release(1)

	resp, err := g.service.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: req.Text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: req.Locale,
			Name:         req.VoiceID,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: audioEncoding,
			SpeakingRate:  req.SpeakingRate,
		},
	}).Context(ctx).Do()
	if err != nil {
		span.RecordError(err)
		g.logger.Logger(ctx).Error("[GoogleTTS] Synthesize request failed", zap.Error(err), zap.String("voice", req.VoiceID))
		return nil, fmt.Errorf("synthesize request failed: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not decode audio content: %w", err)
	}

	g.logger.Logger(ctx).Info("[GoogleTTS] Successfully generated speech", zap.Int("audioSize", len(audio)))
	return audio, nil
}
