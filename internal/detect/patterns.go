package detect

import "regexp"

// Rule is a single deterministic detection pattern. Validate, when set,
// gets a chance to reject a raw regex match based on surrounding text;
// it exists for constraints RE2 cannot express (lookarounds).
type Rule struct {
	Name       string
	Pattern    *regexp.Regexp
	Confidence float64
	Validate   func(text string, start, end int) bool
}

// DefaultRules returns the built-in deterministic pattern table. Order
// matters: detection output is ordered by rule, then by position.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:       "email",
			Pattern:    regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
			Confidence: 1.0,
		},
		{
			Name:       "phone",
			Pattern:    regexp.MustCompile(`\+?\d{1,3}[\s.-]?\(?\d{2,4}\)?[\s.-]?\d{3,4}[\s.-]?\d{3,4}`),
			Confidence: 1.0,
		},
		{
			Name:       "credit_card",
			Pattern:    regexp.MustCompile(`\b\d{4}[\s.-]?\d{4}[\s.-]?\d{4}[\s.-]?\d{4}\b`),
			Confidence: 1.0,
		},
		{
			Name:       "expiry_date",
			Pattern:    regexp.MustCompile(`\b(0[1-9]|1[0-2])/(\d{2}|\d{4})\b`),
			Confidence: 1.0,
			// MM/YY inside a longer date like 25/12/2024 is not an
			// expiry. RE2 has no lookarounds, so the guard runs here.
			Validate: func(text string, start, end int) bool {
				if start >= 2 && text[start-1] == '/' && isDigit(text[start-2]) {
					return false
				}
				if end < len(text) && text[end] == '/' {
					return false
				}
				return true
			},
		},
		{
			Name:       "rut_chile",
			Pattern:    regexp.MustCompile(`\b\d{1,2}\.\d{3}\.\d{3}-[\dkK]\b`),
			Confidence: 1.0,
		},
		{
			Name:       "ssn_us",
			Pattern:    regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
			Confidence: 1.0,
		},
		{
			Name:       "date_dmy",
			Pattern:    regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`),
			Confidence: 1.0,
		},
		{
			Name:       "date_ymd",
			Pattern:    regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
			Confidence: 1.0,
		},
		{
			Name:       "zip_code",
			Pattern:    regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`),
			Confidence: 1.0,
		},
		{
			Name:       "ip_address",
			Pattern:    regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`),
			Confidence: 1.0,
		},
		{
			Name:       "url",
			Pattern:    regexp.MustCompile(`(?i)https?://(?:www\.)?[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b(?:[-a-zA-Z0-9()@:%_+.~#?&/=]*)`),
			Confidence: 1.0,
		},
		{
			Name:       "account_number",
			Pattern:    regexp.MustCompile(`(?i)\b(?:ACC|ACCT|Account)[\s#:]*\d{8,17}\b`),
			Confidence: 1.0,
		},
		{
			Name:       "device_identifier",
			Pattern:    regexp.MustCompile(`(?i)\b(?:[0-9A-F]{2}[:-]){5}(?:[0-9A-F]{2})|(?:SN|Serial)[\s#:]*[A-Z0-9]{8,20}\b`),
			Confidence: 1.0,
		},
	}
}

// CVV detection is contextual: a bare 3-4 digit number is only a CVV
// when it trails a security-code keyword.
var (
	cvvKeywords = []string{"cvv", "cvc", "código de seguridad", "security code"}
	cvvPattern  = regexp.MustCompile(`\b\d{3,4}\b`)
)

// cvvWindow is the number of characters after a keyword in which a
// digit group is treated as a CVV.
const cvvWindow = 50

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
