package anonymize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/veilhq/veil/internal/strategy"
)

var nonDigit = regexp.MustCompile(`\D`)

// MaskEmail masks the local part while preserving the domain:
// jsmith@example.com -> j***h@example.com.
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at < 0 {
		return email
	}

	local, domain := email[:at], email[at+1:]
	var masked string
	if len(local) <= 2 {
		masked = local[:1] + "*"
	} else {
		masked = local[:1] + "***" + local[len(local)-1:]
	}

	return masked + "@" + domain
}

// MaskPhone keeps a short prefix and the last 4 digits:
// +56 9 1234 5555 -> +5691 ***5555.
func MaskPhone(phone string) string {
	digits := nonDigit.ReplaceAllString(phone, "")

	if len(digits) <= 4 {
		return "****" + digits
	}

	prefixLen := len(digits) - 4
	if prefixLen > 4 {
		prefixLen = 4
	}
	prefix := digits[:prefixLen]
	suffix := digits[len(digits)-4:]
	middle := strings.Repeat("*", len(digits)-prefixLen-4)

	return fmt.Sprintf("+%s %s%s", prefix, middle, suffix)
}

// TruncatePAN renders a card number unreadable except the last 4
// digits: ************1111.
func TruncatePAN(pan string) string {
	digits := nonDigit.ReplaceAllString(pan, "")
	if len(digits) < 4 {
		return strings.Repeat("*", len(digits))
	}

	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}

// Tokenize derives an opaque fixed-length token from (value, type):
// TOKEN_RUT_CHILE_a7b3c9d1.
func Tokenize(value, entityType string) string {
	sum := sha256.Sum256([]byte(value))
	token := hex.EncodeToString(sum[:])[:8]
	return fmt.Sprintf("TOKEN_%s_%s", strings.ToUpper(entityType), token)
}

// Pseudonymizer allocates stable counter-backed labels per unique
// value. Lifecycle is one anonymization run; a fresh instance per run
// keeps labels from leaking across documents.
type Pseudonymizer struct {
	prefix  string
	counter map[string]int
}

// NewPseudonymizer creates an empty pseudonym table. prefix defaults to
// "Subject".
func NewPseudonymizer(prefix string) *Pseudonymizer {
	if prefix == "" {
		prefix = "Subject"
	}
	return &Pseudonymizer{prefix: prefix, counter: make(map[string]int)}
}

// Label returns the pseudonym for a value, assigning the next counter on
// first sight. Keying is by lowercased, trimmed value so case variants
// of the same name share one label.
func (p *Pseudonymizer) Label(value string) string {
	key := strings.ToLower(strings.TrimSpace(value))
	n, ok := p.counter[key]
	if !ok {
		n = len(p.counter) + 1
		p.counter[key] = n
	}
	return fmt.Sprintf("%s-%03d", p.prefix, n)
}

var (
	dmyDate = regexp.MustCompile(`^\d{2}/\d{2}/(\d{4})`)
	ymdDate = regexp.MustCompile(`^(\d{4})-\d{2}-\d{2}`)
)

// GeneralizeDate reduces a date to its year. Unrecognized formats pass
// through unchanged.
func GeneralizeDate(date string) string {
	if m := dmyDate.FindStringSubmatch(date); m != nil {
		return m[1]
	}
	if m := ymdDate.FindStringSubmatch(date); m != nil {
		return m[1]
	}
	return date
}

// GeneralizeAddress buckets an address to city/region level.
func GeneralizeAddress(address string) string {
	lower := strings.ToLower(address)
	if strings.Contains(address, "Chile") || strings.Contains(lower, "santiago") {
		return "Santiago, Chile"
	}
	if strings.Contains(address, "Colombia") || strings.Contains(lower, "bogotá") {
		return "Bogotá, Colombia"
	}
	return "[LOCATION REDACTED]"
}

// removalPlaceholders are the typed placeholders used for full removal
// under HIPAA Safe Harbor.
var removalPlaceholders = map[string]string{
	"patient_name":   "[PATIENT]",
	"physician_name": "[PHYSICIAN]",
	"person_name":    "[NAME]",
	"email":          "[EMAIL_REMOVED]",
	"phone":          "[PHONE_REMOVED]",
	"address":        "[ADDRESS_REMOVED]",
	"cvv":            "[CVV_REMOVED]",
}

// RemoveValue returns the removal placeholder for an entity type.
func RemoveValue(entityType string) string {
	if p, ok := removalPlaceholders[entityType]; ok {
		return p
	}
	return "[REDACTED]"
}

// Apply dispatches a technique to the matching transformation. Unknown
// techniques produce a typed placeholder rather than failing.
func Apply(value, entityType, technique string, pseudo *Pseudonymizer) string {
	switch technique {
	case strategy.TechniqueMasking:
		switch {
		case entityType == "email":
			return MaskEmail(value)
		case strings.Contains(entityType, "phone"):
			return MaskPhone(value)
		case entityType == "credit_card":
			return TruncatePAN(value)
		default:
			if len(value) > 2 {
				return value[:2] + "***"
			}
			return value + "***"
		}
	case strategy.TechniqueTokenization:
		return Tokenize(value, entityType)
	case strategy.TechniquePseudonymization:
		return pseudo.Label(value)
	case strategy.TechniqueGeneralization:
		switch {
		case strings.Contains(entityType, "date"):
			return GeneralizeDate(value)
		case strings.Contains(strings.ToLower(entityType), "address"):
			return GeneralizeAddress(value)
		default:
			return value
		}
	case strategy.TechniqueRemoval:
		return RemoveValue(entityType)
	case strategy.TechniqueTruncation:
		return TruncatePAN(value)
	case strategy.TechniqueTruncationTokenization:
		return Tokenize(TruncatePAN(value), entityType)
	default:
		return fmt.Sprintf("[%s_ANONYMIZED]", strings.ToUpper(entityType))
	}
}
