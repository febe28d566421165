package generator

import (
	"fmt"
	"strings"

	"vocabtextdev/textutil"
)

const maxPromptWords = 30

var wordCounts = map[textutil.Level]int{
	textutil.LevelC2: 500,
	textutil.LevelC1: 400,
	textutil.LevelB2: 300,
	textutil.LevelB1: 250,
	textutil.LevelA2: 150,
	textutil.LevelA1: 50,
}

// WordCount is the passage length targeted for a level.
func WordCount(level textutil.Level) int {
	if n, ok := wordCounts[level]; ok {
		return n
	}
	return wordCounts[textutil.LevelB1]
}

const advancedDirective = `Create a sophisticated, academically rigorous text that provides:
- Critical analysis and nuanced arguments
- Philosophical or theoretical depth
- Multiple perspectives and counterarguments
- Advanced insights beyond surface-level explanations
This is NOT an introductory overview - assume the reader is already familiar with the topic.`

func complexityDirective(level textutil.Level) string {
	if level == textutil.LevelC2 {
		return advancedDirective
	}
	return fmt.Sprintf("Create an engaging text appropriate for CEFR %s level.", level)
}

// BuildPrompts returns the system and user prompts for a generation request.
func BuildPrompts(req Request) (string, string) {
	words := req.Words
	if len(words) > maxPromptWords {
		words = words[:maxPromptWords]
	}
	langName := req.Language.Name()

	systemPrompt := fmt.Sprintf("Expert %s content creator. Return valid JSON only.", langName)

	userPrompt := strings.Join([]string{
		fmt.Sprintf("Write a %d-word text in %s about: %s", WordCount(req.Level), langName, req.Topic),
		"",
		complexityDirective(req.Level),
		"",
		"Vocabulary words to incorporate naturally (use as many as flow naturally, prioritize natural writing):",
		strings.Join(words, ", "),
		"",
		"IMPORTANT INSTRUCTIONS:",
		"1. Write naturally and prioritize content quality over forcing vocabulary",
		"2. Use vocabulary words flexibly - adapt tense, form, or use related phrases",
		`3. For phrases like "get things on track", you can use variations like "got their life on track"`,
		"4. Focus on the topic and ideas - don't sacrifice coherence to use more words",
		"5. Return your response as JSON with this exact structure:",
		"{",
		`    "text": "your full text here",`,
		`    "words_used": ["word1", "word2", "word3"]`,
		"}",
		"",
		"Return ONLY valid JSON, no other text.",
	}, "\n")

	return systemPrompt, userPrompt
}
