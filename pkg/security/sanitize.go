package security

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

var (
	// SQL injection patterns (in addition to using parameterized queries)
	sqlInjectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(union\s+select|insert\s+into|delete\s+from|drop\s+table|update\s+.*set)`),
		regexp.MustCompile(`(?i)(exec\s*\(|execute\s*\(|script\s*>|javascript:)`),
	}

	// XSS patterns
	xssPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?i)<iframe[^>]*>.*?</iframe>`),
		regexp.MustCompile(`(?i)on\w+\s*=`), // onclick, onload, etc.
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)<embed[^>]*>`),
		regexp.MustCompile(`(?i)<object[^>]*>`),
	}

	nonDigits = regexp.MustCompile(`\D`)

	// panPattern matches runs of 13-19 digits (optionally separated by
	// spaces or dashes) so raw card numbers never reach logs verbatim.
	panPattern = regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`)
)

// SanitizeString removes potentially dangerous characters and patterns from input
func SanitizeString(input string) string {
	// Trim whitespace
	input = strings.TrimSpace(input)

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters except newlines and tabs
	input = removeControlCharacters(input)

	return input
}

// SanitizeForSQL sanitizes input for SQL (note: always use parameterized queries!)
// This is a defense-in-depth measure, not a replacement for parameterized queries
func SanitizeForSQL(input string) string {
	input = SanitizeString(input)

	for _, pattern := range sqlInjectionPatterns {
		if pattern.MatchString(input) {
			input = pattern.ReplaceAllString(input, "")
		}
	}

	return input
}

// SanitizeForXSS removes XSS attack vectors
func SanitizeForXSS(input string) string {
	input = SanitizeString(input)

	for _, pattern := range xssPatterns {
		input = pattern.ReplaceAllString(input, "")
	}

	return html.EscapeString(input)
}

// StripHTMLTags removes all HTML tags from input
func StripHTMLTags(input string) string {
	htmlTagsRegex := regexp.MustCompile(`<[^>]*>`)
	return htmlTagsRegex.ReplaceAllString(input, "")
}

// removeControlCharacters removes control characters except newlines and tabs
func removeControlCharacters(input string) string {
	var result strings.Builder
	for _, r := range input {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// TruncateString truncates a string to a maximum length
func TruncateString(input string, maxLength int) string {
	if len(input) <= maxLength {
		return input
	}
	return input[:maxLength]
}

// NormalizeWhitespace normalizes whitespace in a string
func NormalizeWhitespace(input string) string {
	whitespaceRegex := regexp.MustCompile(`\s+`)
	input = whitespaceRegex.ReplaceAllString(input, " ")

	return strings.TrimSpace(input)
}

// SanitizeInput is a general-purpose sanitizer for user input
func SanitizeInput(input string, maxLength int) string {
	input = SanitizeString(input)
	input = SanitizeForXSS(input)
	input = SanitizeForSQL(input)
	input = NormalizeWhitespace(input)
	if maxLength > 0 {
		input = TruncateString(input, maxLength)
	}
	return input
}

// NormalizeCardNumber strips spaces, dashes and any other non-digit
// characters from a card number before validation.
func NormalizeCardNumber(number string) string {
	return nonDigits.ReplaceAllString(number, "")
}

// MaskCardNumber keeps only the last four digits of a card number,
// replacing the rest with asterisks. Inputs shorter than four digits
// are masked entirely.
func MaskCardNumber(number string) string {
	digits := NormalizeCardNumber(number)
	if len(digits) <= 4 {
		return strings.Repeat("*", len(digits))
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}

// RedactCardNumbers masks every card-number-looking digit run in free
// text. Applied to request/response bodies before they are logged.
func RedactCardNumbers(input string) string {
	return panPattern.ReplaceAllStringFunc(input, func(match string) string {
		return MaskCardNumber(match)
	})
}
