package conversation

import (
	"fmt"
	"strings"

	"vocabtextdev/textutil"
)

const previewSize = 10

const (
	welcomeMessage = "Welcome! 📚\n\n" +
		"Send me:\n" +
		"1. A .txt file with Anki cards (tab-delimited)\n" +
		"2. Or just paste a column of vocabulary words\n\n" +
		"I'll create a custom text using your vocabulary!"

	defaultMessage = "Please send me a .txt file or paste your vocabulary words (one per line)."

	columnPromptMessage = "Got your file! 📄\n\n" +
		"Which column number contains your target vocabulary words?\n" +
		"(Enter just the number, e.g., 1 for first column, or \"anki\" for a plain Anki export)"

	unreadableFileMessage  = "Sorry, I couldn't read that file. Please make sure it's a text file."
	invalidColumnMessage   = "Please enter a valid column number (e.g., 1, 2, 3)"
	noWordsInColumnMessage = "No words found in that column. Please try again."
	noWordsInListMessage   = "I couldn't find any vocabulary words in that list. Please send one word per line."
	startOverMessage       = "Okay, let's start over. Send me your vocabulary list."
	selectLevelMessage     = "Great! Select your language level:"
	creatingMessage        = "Creating your text... ⏳\nThis may take a minute."
	generatingAudioMessage = "Generating audio... 🔊"
	audioFailedMessage     = "Sorry, I couldn't create the audio this time. Your text is above."
	apologyMessage         = "Sorry, something went wrong. Please try again or contact support."
	doneMessage            = "Done! 🎉\n\nSend me another vocabulary list when you're ready."
)

var levelKeyboard = [][]string{
	{string(textutil.LevelC2), string(textutil.LevelC1), string(textutil.LevelB2)},
	{string(textutil.LevelB1), string(textutil.LevelA2), string(textutil.LevelA1)},
}

func previewMessage(words []string, question string) string {
	shown := words
	more := ""
	if len(shown) > previewSize {
		shown = shown[:previewSize]
		more = "..."
	}
	return fmt.Sprintf("Found %d vocabulary words.\n\nPreview: %s%s\n\n%s",
		len(words), strings.Join(shown, ", "), more, question)
}

func levelSelectedMessage(level textutil.Level) string {
	return fmt.Sprintf("Perfect! Level %s selected.\n\nNow, what topic or question would you like the text about?", level)
}
