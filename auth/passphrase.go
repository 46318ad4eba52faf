package auth

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jrsteele09/buddy-auth/credentials"
	"github.com/jrsteele09/buddy-auth/users"
	"github.com/pkg/errors"
)

// PassphraseEvaluator asserts the master identity when the configured phrase
// appears anywhere in the message. Words of the phrase may be separated by any
// run of whitespace but must each be whole words.
type PassphraseEvaluator struct {
	pattern    *regexp.Regexp
	masterUser string
}

var _ Evaluator = (*PassphraseEvaluator)(nil)

func NewPassphraseEvaluator(phrase, masterUser string) (*PassphraseEvaluator, error) {
	pattern, err := PassphrasePattern(phrase)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(masterUser) == "" {
		return nil, errors.New("[NewPassphraseEvaluator] master user is required")
	}
	return &PassphraseEvaluator{pattern: pattern, masterUser: masterUser}, nil
}

// PassphrasePattern compiles phrase into a case-insensitive, whitespace-tolerant word match.
func PassphrasePattern(phrase string) (*regexp.Regexp, error) {
	words := strings.Fields(phrase)
	if len(words) == 0 {
		return nil, errors.New("[PassphrasePattern] passphrase is empty")
	}
	first, last := words[0], words[len(words)-1]
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}

	expr := strings.Join(words, `\s+`)
	head, _ := utf8.DecodeRuneInString(first)
	tail, _ := utf8.DecodeLastRuneInString(last)
	expr = leadingBoundary(head) + expr + trailingBoundary(tail)
	return regexp.Compile(`(?i)` + expr)
}

// RE2's \b is ASCII only, so non-ASCII letters get an explicit boundary.
const (
	unicodeWordStart = `(?:^|[^\p{L}\p{N}_])`
	unicodeWordEnd   = `(?:$|[^\p{L}\p{N}_])`
)

func leadingBoundary(r rune) string {
	switch {
	case isASCIIWordRune(r):
		return `\b`
	case unicode.IsLetter(r) || unicode.IsDigit(r):
		return unicodeWordStart
	}
	return ""
}

func trailingBoundary(r rune) string {
	switch {
	case isASCIIWordRune(r):
		return `\b`
	case unicode.IsLetter(r) || unicode.IsDigit(r):
		return unicodeWordEnd
	}
	return ""
}

func isASCIIWordRune(r rune) bool {
	return r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func (e *PassphraseEvaluator) Name() string { return "passphrase" }

func (e *PassphraseEvaluator) Evaluate(bundle credentials.Bundle) (*AuthResult, error) {
	if bundle.Message == "" || !e.pattern.MatchString(bundle.Message) {
		return nil, nil
	}
	return &AuthResult{
		Authenticated: true,
		UserID:        e.masterUser,
		Role:          users.RoleMaster,
		Method:        MethodPassphrase,
	}, nil
}
