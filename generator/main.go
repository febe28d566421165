package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"vocabtextdev/logger"
	"vocabtextdev/textutil"
)

var (
	ErrGenerationParse  = errors.New("could not parse generated content")
	ErrGenerationFailed = errors.New("text generation failed")
)

// TextGenerator is a chat-completion style backend.
type TextGenerator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Request struct {
	Words    []string
	Topic    string
	Level    textutil.Level
	Language textutil.Language
}

type Result struct {
	Text      string   `json:"text"`
	WordsUsed []string `json:"words_used"`
}

type GeneratorConnectProps struct {
	Logger  *logger.LogMiddleware
	Backend TextGenerator
	// Timeout bounds a single generation call. Zero leaves it to the backend.
	Timeout time.Duration
}

type Generator struct {
	logger  *logger.LogMiddleware
	backend TextGenerator
	timeout time.Duration
}

func New(args GeneratorConnectProps) *Generator {
	return &Generator{logger: args.Logger, backend: args.Backend, timeout: args.Timeout}
}

// Generate makes exactly one backend call. Every failure matches ErrGenerationFailed.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	tracer := otel.Tracer("generator/Generate")
	ctx, span := tracer.Start(ctx, "Generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("level", string(req.Level)),
		attribute.String("language", string(req.Language)),
		attribute.Int("words", len(req.Words)),
	)

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	systemPrompt, userPrompt := BuildPrompts(req)

	raw, err := g.backend.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		span.RecordError(err)
		g.logger.Logger(ctx).Error("[Generator] Text generation request failed", zap.Error(err))
		return Result{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	result, err := ParseResult(raw)
	if err != nil {
		span.RecordError(err)
		g.logger.Logger(ctx).Error("[Generator] Could not parse generated content",
			zap.Error(err),
			zap.Int("response_length", len(raw)),
		)
		return Result{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	span.SetAttributes(attribute.Int("words_used", len(result.WordsUsed)))
	g.logger.Logger(ctx).Info("[Generator] Generated text",
		zap.Int("text_length", len(result.Text)),
		zap.Int("words_used", len(result.WordsUsed)),
	)
	return result, nil
}

// ParseResult decodes the model output, falling back to the first balanced JSON object
// embedded in surrounding prose.
func ParseResult(raw string) (Result, error) {
	raw = strings.TrimSpace(raw)

	result, err := decode(raw)
	if err != nil {
		object, ok := extractObject(raw)
		if !ok {
			return Result{}, fmt.Errorf("%w: no JSON object in response", ErrGenerationParse)
		}
		if result, err = decode(object); err != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrGenerationParse, err)
		}
	}

	if strings.TrimSpace(result.Text) == "" {
		return Result{}, fmt.Errorf("%w: empty text", ErrGenerationParse)
	}
	if result.WordsUsed == nil {
		result.WordsUsed = []string{}
	}
	return result, nil
}

func decode(s string) (Result, error) {
	var r Result
	err := json.Unmarshal([]byte(s), &r)
	return r, err
}

// extractObject returns the first brace-balanced substring, ignoring braces inside strings.
func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		depth := 0
		inString, escaped := false, false

		for i := start; i < len(s); i++ {
			c := s[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}

			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}

		// Unbalanced from this brace; try the next one.
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}
