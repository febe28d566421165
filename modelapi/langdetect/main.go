package langdetect

import (
	"context"
	"fmt"
	"strings"

	"github.com/abadojack/whatlanggo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// WhatLang detects languages with the trigram models bundled in whatlanggo.
type WhatLang struct {
	options whatlanggo.Options
}

// New restricts detection to the given ISO 639-3 whitelist, or all languages when empty.
func New(whitelist ...whatlanggo.Lang) *WhatLang {
	opts := whatlanggo.Options{}
	if len(whitelist) > 0 {
		opts.Whitelist = make(map[whatlanggo.Lang]bool, len(whitelist))
		for _, l := range whitelist {
			opts.Whitelist[l] = true
		}
	}
	return &WhatLang{options: opts}
}

func (w *WhatLang) Detect(ctx context.Context, sample string) (string, error) {
	tracer := otel.Tracer("langdetect/Detect")
	_, span := tracer.Start(ctx, "Detect")
	defer span.End()

	if strings.TrimSpace(sample) == "" {
		return "", fmt.Errorf("empty sample")
	}

	info := whatlanggo.DetectWithOptions(sample, w.options)
	code := info.Lang.Iso6391()
	if code == "" {
		code = info.Lang.Iso6393()
	}
	if code == "" {
		return "", fmt.Errorf("language not detected")
	}

	span.SetAttributes(
		attribute.String("language", code),
		attribute.Float64("confidence", info.Confidence),
	)
	return code, nil
}
