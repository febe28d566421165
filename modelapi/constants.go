package modelapi

const (
	DEEPSEEK_BASE_URL   = "https://api.deepseek.com"
	DEEPSEEK_MODEL_NAME = "deepseek-chat"
	GEMINI_MODEL_NAME   = "gemini-2.5-flash"
)

// Sampling temperature for passage generation.
const GENERATION_TEMPERATURE = 0.7

// Upper bound on in-flight requests per upstream client.
const MAX_CONCURRENT_REQUESTS = 10
