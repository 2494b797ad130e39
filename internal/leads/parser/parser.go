// Package parser turns free-text chat messages into client fields.
package parser

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"

	"github.com/m3rciful/leadbot/internal/leads/domain"
)

// CommandMarker prefixes search commands and may prefix registrations.
const CommandMarker = "#ลูกค้า"

// NameMarker is the honorific that identifies a registration message.
const NameMarker = "คุณ"

// MsgNameRequired is returned when no name precedes the phone number.
const MsgNameRequired = "กรุณาระบุชื่อลูกค้า"

// DefaultRegion is used by PhoneQuery.
const DefaultRegion = "TH"

const phoneDigits = 10

var (
	phonePattern = regexp.MustCompile(`\d{3}[-\s]?\d{3}[-\s]?\d{4}|\d{10}`)
	digitRun     = regexp.MustCompile(`\d+`)
	clientHint   = regexp.MustCompile(`\d{9,10}`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Parse extracts name, phone and address from a registration message.
func Parse(raw string) (domain.ClientInput, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimSpace(strings.TrimPrefix(text, CommandMarker))

	start, end, phone, ok := findPhone(text)
	if !ok {
		name := trimSeparators(collapse(text))
		if name == "" {
			return domain.ClientInput{}, domain.Validation(MsgNameRequired).WithOp("parse")
		}
		return domain.ClientInput{Name: name}, nil
	}

	in := domain.ClientInput{
		Name:    trimSeparators(collapse(text[:start])),
		Phone:   phone,
		Address: trimSeparators(text[end:]),
	}
	if in.Name == "" {
		return domain.ClientInput{}, domain.Validation(MsgNameRequired).WithOp("parse")
	}
	return in, nil
}

// findPhone returns the byte span of the phone in text and its digits.
func findPhone(text string) (int, int, string, bool) {
	for _, loc := range phonePattern.FindAllStringIndex(text, -1) {
		s, e := loc[0], loc[1]
		digits := onlyDigits(text[s:e])
		if len(digits) != phoneDigits {
			continue
		}
		if s > 0 && isDigit(text[s-1]) {
			continue
		}
		if e < len(text) && isDigit(text[e]) {
			continue
		}
		return s, e, digits, true
	}
	for _, loc := range digitRun.FindAllStringIndex(text, -1) {
		if loc[1]-loc[0] == phoneDigits {
			return loc[0], loc[1], text[loc[0]:loc[1]], true
		}
	}
	return 0, 0, "", false
}

// LooksLikeClientInput reports whether text should be treated as a registration.
func LooksLikeClientInput(text string) bool {
	return strings.Contains(text, NameMarker) || clientHint.MatchString(text)
}

// SearchTerm reports whether text is a search command and returns its term.
// An empty term with ok=true means the command was given without a query.
func SearchTerm(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, CommandMarker) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(text, CommandMarker)), true
}

// PhoneQuery normalizes an international or formatted number to national digits
// using DefaultRegion. It returns "" when term is not a valid phone number.
func PhoneQuery(term string) string {
	return PhoneQueryIn(term, DefaultRegion)
}

// PhoneQueryIn is PhoneQuery for an explicit region.
func PhoneQueryIn(term, region string) string {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" || !strings.ContainsAny(trimmed, "0123456789") {
		return ""
	}
	if region == "" {
		region = DefaultRegion
	}
	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return ""
	}
	return onlyDigits(phonenumbers.Format(number, phonenumbers.NATIONAL))
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func trimSeparators(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return r == '-' || unicode.IsSpace(r)
	})
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
