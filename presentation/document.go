package presentation

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"
)

const DocumentName = "text.html"

var documentTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body {
            font-family: Georgia, serif;
            line-height: 1.8;
            max-width: 800px;
            margin: 40px auto;
            padding: 20px;
            background-color: #f5f5f5;
        }
        .content {
            background-color: white;
            padding: 40px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        b {
            color: #2563eb;
            font-weight: 600;
        }
        p {
            margin-bottom: 1.5em;
        }
    </style>
</head>
<body>
    <div class="content">
{{- range .Paragraphs}}
        <p>{{.}}</p>
{{- end}}
    </div>
</body>
</html>
`))

// RenderDocument escapes the generated text, highlights the used vocabulary and wraps each
// line in a paragraph of the reading document.
func RenderDocument(text string, wordsUsed []string) ([]byte, error) {
	escapedWords := make([]string, len(wordsUsed))
	for i, w := range wordsUsed {
		escapedWords[i] = html.EscapeString(w)
	}
	marked := Highlight(html.EscapeString(text), escapedWords)

	var paragraphs []template.HTML
	for _, line := range strings.Split(strings.ReplaceAll(marked, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paragraphs = append(paragraphs, template.HTML(line))
		}
	}

	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, struct{ Paragraphs []template.HTML }{paragraphs}); err != nil {
		return nil, fmt.Errorf("could not render document: %w", err)
	}
	return buf.Bytes(), nil
}

var markupPattern = regexp.MustCompile(`<[^<]+?>`)

// StripMarkup removes tags and decodes entities so the text can be read aloud.
func StripMarkup(text string) string {
	return html.UnescapeString(markupPattern.ReplaceAllString(text, ""))
}

// UsedWordsCaption summarizes the highlighted vocabulary for the document message.
func UsedWordsCaption(wordsUsed []string) string {
	return fmt.Sprintf("✅ Used %d vocabulary words:\n%s", len(wordsUsed), strings.Join(wordsUsed, ", "))
}
