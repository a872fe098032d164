// Package pii finds and masks personal and financial identifiers in
// free text: resident registration numbers, card and account numbers,
// phone numbers and disclosed passwords or one-time codes.
package pii

import (
	"sort"
	"strings"
	"sync"
)

const DefaultRedactText = "[REDACTED]"

// Finding is one matched identifier. Start and End are byte offsets.
type Finding struct {
	Kind     Kind
	Label    string
	Value    string
	Severity Severity
	Start    int
	End      int
}

// Detector applies a fixed rule set. It is safe for concurrent use.
type Detector struct {
	patterns   []Pattern
	redactText string

	mu     sync.Mutex
	counts map[Kind]int64
}

func NewDetector(patterns ...Pattern) *Detector {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	return &Detector{
		patterns:   patterns,
		redactText: DefaultRedactText,
		counts:     make(map[Kind]int64),
	}
}

var defaultDetector = NewDetector()

// Detect returns the identifiers in text ordered by position.
func Detect(text string) []Finding { return defaultDetector.Detect(text) }

// Mask replaces every identifier in text with [REDACTED].
func Mask(text string) string {
	masked, _ := defaultDetector.Mask(text)
	return masked
}

func (d *Detector) Detect(text string) []Finding {
	if text == "" {
		return nil
	}

	var findings []Finding
	for _, p := range d.patterns {
		for _, loc := range p.Pattern.FindAllStringIndex(text, -1) {
			if !p.accepts(text[loc[0]:loc[1]]) || overlaps(findings, loc[0], loc[1]) {
				continue
			}
			findings = append(findings, Finding{
				Kind:     p.Kind,
				Label:    p.Label,
				Value:    strings.TrimSpace(text[loc[0]:loc[1]]),
				Severity: p.Severity,
				Start:    loc[0],
				End:      loc[1],
			})
		}
	}

	sort.Slice(findings, func(i, j int) bool {
		return findings[i].Start < findings[j].Start
	})
	d.record(findings)
	return findings
}

func overlaps(findings []Finding, start, end int) bool {
	for _, f := range findings {
		if start < f.End && f.Start < end {
			return true
		}
	}
	return false
}

// Mask returns text with every finding replaced and the number of
// replacements made.
func (d *Detector) Mask(text string) (string, int) {
	findings := d.Detect(text)
	if len(findings) == 0 {
		return text, 0
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, f := range findings {
		b.WriteString(text[last:f.Start])
		b.WriteString(d.redactText)
		last = f.End
	}
	b.WriteString(text[last:])
	return b.String(), len(findings)
}

// Values returns the matched substrings in text order.
func Values(findings []Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Value)
	}
	return out
}

// Labels returns the distinct labels of findings in first-seen order.
func Labels(findings []Finding) []string {
	seen := make(map[string]bool, len(findings))
	var out []string
	for _, f := range findings {
		if seen[f.Label] {
			continue
		}
		seen[f.Label] = true
		out = append(out, f.Label)
	}
	return out
}

func (d *Detector) record(findings []Finding) {
	if len(findings) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, f := range findings {
		d.counts[f.Kind]++
	}
}

// Counts returns how many identifiers of each kind have been seen.
func (d *Detector) Counts() map[Kind]int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[Kind]int64, len(d.counts))
	for k, v := range d.counts {
		out[k] = v
	}
	return out
}

// MaskValues masks every identifier in text and, in addition, every
// literal occurrence of values. It covers items another check flagged
// that no pattern recognises.
func (d *Detector) MaskValues(text string, values []string) string {
	masked, _ := d.Mask(text)
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || v == d.redactText {
			continue
		}
		masked = strings.ReplaceAll(masked, v, d.redactText)
	}
	return masked
}

// MaskValues is Detector.MaskValues on the default detector.
func MaskValues(text string, values []string) string {
	return defaultDetector.MaskValues(text, values)
}

// Obscure hides the middle of value, keeping two runes on each side of
// values longer than six runes.
func Obscure(value string) string {
	runes := []rune(value)
	if len(runes) <= 6 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-2:])
}
