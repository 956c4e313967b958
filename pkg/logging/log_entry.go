package logging

// LogEntry represents a structured log record with fields relevant to LM-driven optimization.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// LM-specific fields
	ModelID   string     // The model being used
	TokenInfo *TokenInfo // Token usage information

	// General structured data
	Fields map[string]interface{}
}

// TokenInfo tracks token usage for cost and performance monitoring.
type TokenInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
