package textutil

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Language string

const (
	English Language = "en"
	Spanish Language = "es"
	Chinese Language = "zh"
)

// Name is the language name used in generation prompts.
func (l Language) Name() string {
	switch l {
	case Spanish:
		return "Spanish"
	case Chinese:
		return "Chinese"
	default:
		return "English"
	}
}

type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

// Levels in keyboard order, hardest first.
var Levels = []Level{LevelC2, LevelC1, LevelB2, LevelB1, LevelA2, LevelA1}

func ParseLevel(text string) (Level, bool) {
	candidate := Level(strings.ToUpper(strings.TrimSpace(text)))
	for _, l := range Levels {
		if l == candidate {
			return l, true
		}
	}
	return "", false
}

var ErrInvalidColumn = errors.New("no words found in column")

const detectSampleSize = 10

// Detector identifies the language of a text sample and returns a raw tag such as "en" or "zh-cn".
type Detector interface {
	Detect(ctx context.Context, sample string) (string, error)
}

// DetectLanguage never fails: detector errors and unsupported languages fall back to English.
func DetectLanguage(ctx context.Context, detector Detector, words []string) Language {
	if detector == nil {
		return English
	}
	sample := words
	if len(sample) > detectSampleSize {
		sample = sample[:detectSampleSize]
	}

	raw, err := detector.Detect(ctx, strings.Join(sample, " "))
	if err != nil {
		return English
	}
	return mapLanguageTag(raw)
}

func mapLanguageTag(raw string) Language {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "cmn", "zho", "chi":
		return Chinese
	case "spa":
		return Spanish
	}

	tag, err := language.Parse(raw)
	if err != nil {
		return English
	}
	base, _ := tag.Base()
	switch base.String() {
	case "es":
		return Spanish
	case "zh":
		return Chinese
	default:
		return English
	}
}

var lower = cases.Lower(language.Und)

// FilterWords drops empty entries, short entries (except for Chinese) and stop words.
// Surviving entries keep their original casing, trimmed.
func FilterWords(words []string, lang Language) []string {
	stop := stopWords[lang]
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		trimmed := strings.TrimSpace(word)
		normalized := lower.String(trimmed)
		if normalized == "" {
			continue
		}
		if lang != Chinese && utf8.RuneCountInString(normalized) <= 2 {
			continue
		}
		if _, ok := stop[normalized]; ok {
			continue
		}
		filtered = append(filtered, trimmed)
	}

	return filtered
}

// IsStopWord reports whether the lowercased, trimmed word is a stop word for lang.
func IsStopWord(word string, lang Language) bool {
	_, ok := stopWords[lang][lower.String(strings.TrimSpace(word))]
	return ok
}

func lines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}

// SplitLines returns the trimmed, non-empty lines of pasted text.
func SplitLines(text string) []string {
	var words []string
	for _, line := range lines(text) {
		if line = strings.TrimSpace(line); line != "" {
			words = append(words, line)
		}
	}
	return words
}

// ParseAnkiExport takes the first tab-delimited field of every entry of an Anki text export.
func ParseAnkiExport(text string) []string {
	var words []string

	for _, line := range lines(text) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.Contains(line, "Anki") || strings.Contains(line, "http") {
			continue
		}

		fields := strings.Split(line, "\t")
		words = append(words, strings.TrimSpace(fields[0]))
	}

	return words
}

// ParseColumn extracts a 1-based tab-delimited column.
func ParseColumn(text string, column int) ([]string, error) {
	if column < 1 {
		return nil, ErrInvalidColumn
	}

	var words []string
	for _, line := range lines(text) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		// Split the untrimmed line so empty leading fields keep their position.
		fields := strings.Split(line, "\t")
		if len(fields) < column {
			continue
		}
		if word := strings.TrimSpace(fields[column-1]); word != "" {
			words = append(words, word)
		}
	}

	if len(words) == 0 {
		return nil, ErrInvalidColumn
	}
	return words, nil
}
