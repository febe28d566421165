package deepgramapi

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/pkg/client/listen"
	"go.uber.org/zap"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"vocabtextdev/logger"
)

type DeepgramConnectProps struct {
	Logger *logger.LogMiddleware
	APIKey string
}

type DeepgramAPI struct {
	logger *logger.LogMiddleware
	dg     *api.Client
}

func Connect(args DeepgramConnectProps) *DeepgramAPI {
	c := client.NewREST(args.APIKey, &interfaces.ClientOptions{})
	dg := api.New(c)

	return &DeepgramAPI{logger: args.Logger, dg: dg}
}

// Transcribe turns a voice note into text so it can be handled like a typed message.
func (d *DeepgramAPI) Transcribe(ctx context.Context, audioData []byte) (string, error) {
	tracer := otel.Tracer("deepgramapi")
	ctx, span := tracer.Start(ctx, "Transcribe")
	defer span.End()

	span.SetAttributes(attribute.Int("audio.data.size", len(audioData)))

	logger := d.logger.Logger(ctx)

	options := &interfaces.PreRecordedTranscriptionOptions{
		Punctuate:  true,
		Diarize:    false,
		Language:   "multi",
		Utterances: true,
		Model:      "nova-3",
	}

	span.AddEvent("Calling Deepgram API")
	res, err := d.dg.FromStream(ctx, bytes.NewReader(audioData), options)
	if err != nil {
		logger.Error("[DeepgramAPI] Transcription failed", zap.Error(err))
		span.RecordError(err)
		return "", fmt.Errorf("deepgram transcription failed: %w", err)
	}

	if res != nil && res.Results != nil && len(res.Results.Channels) > 0 {
		channel := res.Results.Channels[0]
		if len(channel.Alternatives) > 0 {
			transcription := strings.TrimSpace(channel.Alternatives[0].Transcript)
			if transcription != "" {
				logger.Info("[DeepgramAPI] Successfully transcribed audio", zap.Int("transcription.length", len(transcription)))
				span.AddEvent("Transcription successful", trace.WithAttributes(attribute.Int("transcription.length", len(transcription))))
				return transcription, nil
			}
		}
	}

	logger.Warn("[DeepgramAPI] No transcription found in response")
	span.AddEvent("No transcription found in Deepgram response")
	return "", fmt.Errorf("no transcription found in response")
}
