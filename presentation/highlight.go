package presentation

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	openMark  = "<b>"
	closeMark = "</b>"
)

// Already-marked regions and HTML entities are matched first so they are copied verbatim.
const skipPattern = `<b>.*?</b>|&#?[0-9A-Za-z]+;`

const wordChars = `[\p{L}\p{N}\p{M}_]`

// Highlight wraps every occurrence of the used words, including inflected forms that extend
// them, in <b> tags. Longer words take precedence and existing marks are left untouched, so
// applying it again with the same words changes nothing.
func Highlight(text string, wordsUsed []string) string {
	re := buildPattern(wordsUsed)
	if re == nil {
		return text
	}

	var b strings.Builder
	last, pos := 0, 0
	for pos < len(text) {
		loc := re.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		match := text[start:end]

		if strings.HasPrefix(match, openMark) || strings.HasPrefix(match, "&") {
			pos = end
			continue
		}
		if !isHan(match) && !atWordStart(text, start) {
			// A shorter word may still start inside the rejected span.
			_, size := utf8.DecodeRuneInString(text[start:])
			pos = start + size
			continue
		}

		b.WriteString(text[last:start])
		b.WriteString(openMark)
		b.WriteString(match)
		b.WriteString(closeMark)
		last, pos = end, end
	}
	b.WriteString(text[last:])

	return b.String()
}

func buildPattern(wordsUsed []string) *regexp.Regexp {
	words := make([]string, 0, len(wordsUsed))
	seen := make(map[string]bool, len(wordsUsed))
	for _, w := range wordsUsed {
		w = strings.TrimSpace(w)
		if w == "" || seen[strings.ToLower(w)] {
			continue
		}
		seen[strings.ToLower(w)] = true
		words = append(words, w)
	}
	if len(words) == 0 {
		return nil
	}

	sort.SliceStable(words, func(i, j int) bool {
		return utf8.RuneCountInString(words[i]) > utf8.RuneCountInString(words[j])
	})

	alternatives := make([]string, 0, len(words)+1)
	alternatives = append(alternatives, skipPattern)
	for _, w := range words {
		quoted := regexp.QuoteMeta(w)
		if isHan(w) {
			// Han text has no spaces between words, so neither boundaries nor suffixes apply.
			alternatives = append(alternatives, quoted)
			continue
		}
		alternatives = append(alternatives, quoted+wordChars+`*`)
	}

	return regexp.MustCompile(`(?is)` + strings.Join(alternatives, "|"))
}

func isHan(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.Is(unicode.Han, r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}

func atWordStart(text string, start int) bool {
	if start == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:start])
	return !isWordRune(r)
}
