package pii

import "regexp"

// Kind names a category of personal information.
type Kind string

const (
	KindResidentID Kind = "resident_id"
	KindCard       Kind = "card_number"
	KindCredential Kind = "credential"
	KindMobile     Kind = "mobile_phone"
	KindLandline   Kind = "phone"
	KindAccount    Kind = "account_number"
)

type Severity string

const (
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Pattern is one detector rule. Label is the Korean name shown to the
// trainee when the pattern fires. Matches with fewer than MinDigits
// digits are ignored.
type Pattern struct {
	Kind      Kind
	Label     string
	Pattern   *regexp.Regexp
	Severity  Severity
	MinDigits int
}

func newPattern(kind Kind, label, expr string, severity Severity) Pattern {
	return Pattern{
		Kind:     kind,
		Label:    label,
		Pattern:  regexp.MustCompile(expr),
		Severity: severity,
	}
}

// minAccountDigits keeps dashed dates and clock times (2024-03-15,
// 12-30-45) out of the account rule.
const minAccountDigits = 10

func (p Pattern) withMinDigits(n int) Pattern {
	p.MinDigits = n
	return p
}

// accepts reports whether match carries enough digits for p.
func (p Pattern) accepts(match string) bool {
	if p.MinDigits <= 0 {
		return true
	}
	n := 0
	for _, r := range match {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n >= p.MinDigits
}

// DefaultPatterns returns the built-in rules in priority order. When two
// rules match overlapping text the earlier rule wins.
func DefaultPatterns() []Pattern {
	return []Pattern{
		newPattern(KindResidentID, "주민등록번호", `\d{6}\s?-\s?[1-4]\d{6}`, SeverityCritical),
		newPattern(KindCard, "카드번호", `\d{4}[- ]\d{4}[- ]\d{4}[- ]\d{4}`, SeverityCritical),
		newPattern(KindCredential, "비밀번호/인증번호", `(?:비밀번호|비번|(?i:otp)|인증번호|보안카드)\s*(?:은|는|:)?\s*\d{4,8}`, SeverityCritical),
		newPattern(KindMobile, "휴대전화번호", `01[016789]-?\d{3,4}-?\d{4}`, SeverityHigh),
		newPattern(KindLandline, "전화번호", `0\d{1,2}-\d{3,4}-\d{4}`, SeverityHigh),
		newPattern(KindAccount, "계좌번호", `\d{2,6}-\d{2,6}-\d{2,8}`, SeverityCritical).withMinDigits(minAccountDigits),
		newPattern(KindAccount, "계좌번호", `\b\d{10,14}\b`, SeverityCritical),
	}
}
