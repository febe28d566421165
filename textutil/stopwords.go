package textutil

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Common function words that make poor vocabulary targets.
var stopWords = map[Language]map[string]struct{}{
	English: set(
		"a", "an", "the", "in", "on", "at", "to", "for", "of", "with", "by", "from",
		"have", "has", "had", "be", "is", "are", "was", "were", "been", "being",
		"do", "does", "did", "will", "would", "should", "could", "can", "may",
		"might", "must", "shall",
	),
	Spanish: set(
		"el", "la", "los", "las", "un", "una", "de", "en", "a", "por", "para",
		"con", "sin", "ser", "estar", "haber", "tener", "hacer", "poder", "deber",
	),
	Chinese: set(
		"的", "了", "在", "是", "我", "有", "和", "人", "这", "中", "大", "为", "上", "个", "国",
	),
}
