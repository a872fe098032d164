package errors

// ClassifierConfig lists the message patterns and HTTP status codes used
// to tier untyped errors.
type ClassifierConfig struct {
	TransientPatterns   []string `yaml:"transient_patterns"`
	PermanentPatterns   []string `yaml:"permanent_patterns"`
	UserFixablePatterns []string `yaml:"user_fixable_patterns"`
	RateLimitStatuses   []int    `yaml:"rate_limit_statuses"`
	DegradingStatuses   []int    `yaml:"degrading_statuses"`
}

func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		TransientPatterns: []string{
			`(?i)timeout`,
			`(?i)temporar`,
			`(?i)connection (reset|refused)`,
			`(?i)\beof\b`,
			`(?i)broken pipe`,
			`(?i)no route to host`,
		},
		PermanentPatterns: []string{
			`(?i)not found`,
			`(?i)invalid`,
			`(?i)malformed`,
			`(?i)unsupported`,
		},
		UserFixablePatterns: []string{
			`(?i)api.?key`,
			`(?i)authentication`,
			`(?i)permission denied`,
			`(?i)\b401\b`,
			`(?i)\b403\b`,
		},
		RateLimitStatuses: []int{429},
		DegradingStatuses: []int{500, 502, 503, 504, 529},
	}
}
