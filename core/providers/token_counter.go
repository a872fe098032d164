package providers

import "unicode"

// TokenCounter estimates how many tokens text costs a model.
type TokenCounter interface {
	Count(messages []Message) (int, error)
	CountText(text string) (int, error)
}

const DefaultCharsPerToken = 4

// RuneCounter estimates tokens without a tokenizer. A Hangul syllable
// costs about one token; other runes are grouped CharsPerToken to a token.
type RuneCounter struct {
	charsPerToken int
}

func NewRuneCounter(charsPerToken int) *RuneCounter {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return &RuneCounter{charsPerToken: charsPerToken}
}

func (c *RuneCounter) Count(messages []Message) (int, error) {
	total := 0
	for _, msg := range messages {
		total += c.count(msg.Content)
		for _, call := range msg.ToolCalls {
			total += c.count(call.Name) + c.count(call.Arguments)
		}
	}
	return total, nil
}

func (c *RuneCounter) CountText(text string) (int, error) {
	return c.count(text), nil
}

func (c *RuneCounter) count(text string) int {
	hangul, other := 0, 0
	for _, r := range text {
		if unicode.Is(unicode.Hangul, r) {
			hangul++
		} else {
			other++
		}
	}
	return hangul + (other+c.charsPerToken-1)/c.charsPerToken
}
