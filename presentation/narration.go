package presentation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"vocabtextdev/logger"
	"vocabtextdev/textutil"
)

const AudioName = "audio.mp3"

var (
	ErrSynthesisFailed = errors.New("speech synthesis failed")
	ErrNoNarration     = errors.New("level has no narration")
)

// VoiceRoster lists the narration voices available per language.
var VoiceRoster = map[textutil.Language][]string{
	textutil.English: {
		"en-US-Chirp3-HD-Achird",
		"en-US-Chirp3-HD-Callirrhoe",
		"en-US-Chirp3-HD-Achernar",
		"en-US-Chirp3-HD-Algenib",
		"en-US-Chirp3-HD-Erinome",
		"en-US-Chirp3-HD-Schedar",
		"en-US-Chirp3-HD-Kore",
	},
	textutil.Spanish: {
		"es-ES-Chirp-HD-F",
		"es-ES-Chirp-HD-O",
		"es-ES-Chirp3-HD-Gacrux",
		"es-US-Chirp3-HD-Leda",
		"es-ES-Chirp3-HD-Algenib",
		"es-ES-Chirp3-HD-Charon",
		"es-US-Chirp3-HD-Algieba",
	},
	textutil.Chinese: {
		"cmn-CN-Chirp3-HD-Aoede",
		"cmn-CN-Chirp3-HD-Leda",
		"cmn-CN-Chirp3-HD-Puck",
	},
}

var locales = map[textutil.Language]string{
	textutil.English: "en-US",
	textutil.Spanish: "es-ES",
	textutil.Chinese: "cmn-CN",
}

var speakingRates = map[textutil.Level]float64{
	textutil.LevelC1: 1.0,
	textutil.LevelB2: 0.85,
	textutil.LevelB1: 0.85,
	textutil.LevelA2: 0.70,
	textutil.LevelA1: 0.70,
}

// SpeakingRate is the narration speed for a level. C2 passages are not narrated.
func SpeakingRate(level textutil.Level) (float64, bool) {
	rate, ok := speakingRates[level]
	return rate, ok
}

func Locale(lang textutil.Language) string {
	if l, ok := locales[lang]; ok {
		return l
	}
	return locales[textutil.English]
}

// AudioCaption reports the narration speed as a percentage.
func AudioCaption(level textutil.Level) string {
	rate, _ := SpeakingRate(level)
	return fmt.Sprintf("🎧 Audio at %d%% speed", int(rate*100+0.5))
}

// VoicePicker chooses one voice from a non-empty roster.
type VoicePicker func(roster []string) string

func RandomVoice(roster []string) string {
	return roster[rand.IntN(len(roster))]
}

// SelectVoice picks a voice for lang, falling back to the English roster.
func SelectVoice(lang textutil.Language, pick VoicePicker) string {
	roster, ok := VoiceRoster[lang]
	if !ok {
		roster = VoiceRoster[textutil.English]
	}
	if pick == nil {
		pick = RandomVoice
	}
	return pick(roster)
}

type SpeechRequest struct {
	Text         string
	VoiceID      string
	Locale       string
	SpeakingRate float64
}

// SpeechSynthesizer returns encoded audio for the request.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error)
}

type NarratorConnectProps struct {
	Logger      *logger.LogMiddleware
	Synthesizer SpeechSynthesizer
	// PickVoice overrides random voice selection.
	PickVoice VoicePicker
}

type Narrator struct {
	logger      *logger.LogMiddleware
	synthesizer SpeechSynthesizer
	pickVoice   VoicePicker
}

func NewNarrator(args NarratorConnectProps) *Narrator {
	pick := args.PickVoice
	if pick == nil {
		pick = RandomVoice
	}
	return &Narrator{logger: args.Logger, synthesizer: args.Synthesizer, pickVoice: pick}
}

func (n *Narrator) Synthesize(ctx context.Context, text string, lang textutil.Language, level textutil.Level) ([]byte, error) {
	tracer := otel.Tracer("presentation/Synthesize")
	ctx, span := tracer.Start(ctx, "Synthesize")
	defer span.End()

	rate, ok := SpeakingRate(level)
	if !ok {
		return nil, ErrNoNarration
	}

	req := SpeechRequest{
		Text:         strings.TrimSpace(StripMarkup(text)),
		VoiceID:      SelectVoice(lang, n.pickVoice),
		Locale:       Locale(lang),
		SpeakingRate: rate,
	}
	span.SetAttributes(
		attribute.String("voice", req.VoiceID),
		attribute.String("locale", req.Locale),
		attribute.Float64("speaking_rate", req.SpeakingRate),
	)

	audio, err := n.synthesizer.Synthesize(ctx, req)
	if err != nil {
		span.RecordError(err)
		n.logger.Logger(ctx).Error("[Narrator] Speech synthesis failed",
			zap.Error(err),
			zap.String("voice", req.VoiceID),
			zap.String("locale", req.Locale),
		)
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio", ErrSynthesisFailed)
	}

	n.logger.Logger(ctx).Info("[Narrator] Synthesized audio",
		zap.String("voice", req.VoiceID),
		zap.Int("audio_size", len(audio)),
	)
	return audio, nil
}
