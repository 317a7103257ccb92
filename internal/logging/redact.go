package logging

import "regexp"

// Patterns for secrets that should not reach the log file when commands are logged.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(sk-[a-zA-Z0-9_-]{20,})`),                     // OpenAI/Anthropic style
	regexp.MustCompile(`(AIza[a-zA-Z0-9_-]{35})`),                     // Google API key
	regexp.MustCompile(`(gh[po]_[a-zA-Z0-9]{36})`),                    // GitHub PAT / OAuth
	regexp.MustCompile(`(github_pat_[a-zA-Z0-9]{22}_[a-zA-Z0-9]+)`),   // GitHub fine-grained PAT
	regexp.MustCompile(`(?i)bearer\s+([a-zA-Z0-9._-]{20,})`),          // Bearer tokens
	regexp.MustCompile(`(?i)(key|token|secret|password|auth)[=:]\S+`), // key=value pairs
}

// RedactedValue is the replacement for sensitive values.
const RedactedValue = "[REDACTED]"

// Redact replaces sensitive information in a string.
func Redact(s string) string {
	for _, pattern := range secretPatterns {
		s = pattern.ReplaceAllString(s, RedactedValue)
	}
	return s
}
