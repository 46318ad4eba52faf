// Package credentials normalises untrusted request input (headers, message
// text and the claimed user id) before any credential is evaluated.
//
// Every function here is total: malformed input is coerced into a bounded,
// printable form and never reported as an error. Running a sanitizer on its
// own output returns the same value.
package credentials

import (
	"net/http"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jrsteele09/buddy-auth/internal/utils"
)

const (
	MaxHeaderKeyLength   = 100
	MaxHeaderValueLength = 1000
	MaxMessageLength     = 10000
	MaxUserIDLength      = 100

	// AnonymousUserID replaces a claimed user id that sanitizes to nothing.
	AnonymousUserID = "anonymous"
)

var headerKeyPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Headers is a sanitized header map with lower-case keys.
type Headers map[string]string

// Get returns the value for a lower-case key.
func (h Headers) Get(key string) string {
	return h[strings.ToLower(key)]
}

// Bundle is everything an evaluator may look at.
type Bundle struct {
	Headers Headers
	Message string
	UserID  string
	Flags   []string // suspicious content markers, logged only
}

// Extract sanitizes a raw credential bundle.
func Extract(rawHeaders map[string]any, message, userID string) Bundle {
	cleanMessage := SanitizeMessage(message)
	return Bundle{
		Headers: SanitizeHeaders(rawHeaders),
		Message: cleanMessage,
		UserID:  SanitizeUserID(userID),
		Flags:   Flags(cleanMessage),
	}
}

// FromHTTP adapts a request header to the raw form SanitizeHeaders accepts.
// Only the first value of a repeated header is kept.
func FromHTTP(h http.Header) map[string]any {
	raw := make(map[string]any, len(h))
	for k, values := range h {
		if v, ok := utils.FirstString(values); ok {
			raw[k] = v
		}
	}
	return raw
}

// SanitizeHeaders drops non-string values and invalid keys, lower-cases and
// truncates keys and scrubs values.
func SanitizeHeaders(raw map[string]any) Headers {
	clean := make(Headers, len(raw))

	// Sorted so that keys colliding after lower-casing resolve deterministically.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		value, ok := headerValue(raw[k])
		if !ok {
			continue
		}

		key := truncateBytes(strings.ToLower(k), MaxHeaderKeyLength)
		if !headerKeyPattern.MatchString(key) {
			continue
		}

		clean[key] = truncateRunes(stripControl(value, "\t\n"), MaxHeaderValueLength)
	}
	return clean
}

func headerValue(v any) (string, bool) {
	switch value := v.(type) {
	case string:
		return value, true
	case []string:
		return utils.FirstString(value)
	case []any:
		return utils.FirstString(utils.ToStringSlice(value))
	default:
		return "", false
	}
}

// SanitizeMessage strips control characters (keeping tab, newline and
// carriage return) and bounds the length. Suspicious content is kept; see Flags.
func SanitizeMessage(message string) string {
	return truncateRunes(stripControl(message, "\t\n\r"), MaxMessageLength)
}

// SanitizeUserID keeps letters, digits, underscore, hyphen and space,
// collapses whitespace and bounds the length.
func SanitizeUserID(userID string) string {
	var b strings.Builder
	for _, r := range strings.ToValidUTF8(userID, "") {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == ' ' {
			b.WriteRune(r)
		}
	}

	clean := strings.Join(strings.Fields(b.String()), " ")
	clean = strings.TrimSpace(truncateRunes(clean, MaxUserIDLength))
	if clean == "" {
		return AnonymousUserID
	}
	return clean
}

func stripControl(s string, keep string) string {
	s = strings.ToValidUTF8(s, "")
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		if unicode.IsControl(r) && !strings.ContainsRune(keep, r) {
			return -1
		}
		return r
	}, s)
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

// truncateBytes is only used on keys, which must be ASCII to survive the key pattern.
func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
