package credentials_test

import (
	"net/http"
	"strings"
	"testing"
	"unicode"

	"github.com/jrsteele09/buddy-auth/credentials"
	"github.com/stretchr/testify/require"
)

func TestSanitizeHeaders(t *testing.T) {
	raw := map[string]any{
		"User-Agent":     "Siri/iPhone15,2 iOS/17.0",
		"X-Device-ID":    []string{"iPhone14,7", "ignored"},
		"X-Mixed":        []any{42, "second"},
		"Content Length": "12",
		"X-Count":        12,
		"Authorization":  "Bearer abc\x00def\x07",
		"X-Multiline":    "line1\nline2\tend\r",
	}
	raw[strings.Repeat("k", 150)] = "long-key"

	headers := credentials.SanitizeHeaders(raw)

	require.Equal(t, "Siri/iPhone15,2 iOS/17.0", headers["user-agent"])
	require.Equal(t, "iPhone14,7", headers["x-device-id"])
	require.Equal(t, "second", headers["x-mixed"])
	require.Equal(t, "Bearer abcdef", headers["authorization"])
	require.Equal(t, "line1\nline2\tend", headers["x-multiline"])
	require.Equal(t, "long-key", headers[strings.Repeat("k", credentials.MaxHeaderKeyLength)])
	require.NotContains(t, headers, "content length")
	require.NotContains(t, headers, "x-count")
	require.Equal(t, "Siri/iPhone15,2 iOS/17.0", headers.Get("User-Agent"))
}

func TestSanitizeHeaders_BoundsAndIdempotence(t *testing.T) {
	raw := map[string]any{
		"X-Long":       strings.Repeat("é", 2*credentials.MaxHeaderValueLength),
		"X-Bad\x01":    "dropped",
		"X-Invalid":    "ok\xff\xfeok",
		"UPPER_CASE-1": "\x1b[31mred",
	}

	first := credentials.SanitizeHeaders(raw)
	for k, v := range first {
		require.LessOrEqual(t, len(k), credentials.MaxHeaderKeyLength)
		require.Equal(t, strings.ToLower(k), k)
		require.LessOrEqual(t, len([]rune(v)), credentials.MaxHeaderValueLength)
		for _, r := range v {
			if r == '\t' || r == '\n' {
				continue
			}
			require.False(t, unicode.IsControl(r), "control character in %q", k)
		}
	}
	require.NotContains(t, first, "x-bad\x01")
	require.Equal(t, "okok", first["x-invalid"])
	require.Equal(t, "[31mred", first["upper_case-1"])

	again := make(map[string]any, len(first))
	for k, v := range first {
		again[k] = v
	}
	require.Equal(t, first, credentials.SanitizeHeaders(again))
}

func TestFromHTTP(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer token")
	h.Add("X-Forwarded-For", "10.0.0.1")
	h.Add("X-Forwarded-For", "10.0.0.2")

	headers := credentials.SanitizeHeaders(credentials.FromHTTP(h))
	require.Equal(t, "Bearer token", headers["authorization"])
	require.Equal(t, "10.0.0.1", headers["x-forwarded-for"])
}

func TestSanitizeMessage(t *testing.T) {
	t.Run("strips control characters but keeps whitespace", func(t *testing.T) {
		msg := credentials.SanitizeMessage("hello\x00 there\x01\r\n\tfriend")
		require.Equal(t, "hello there\r\n\tfriend", msg)
	})

	t.Run("truncates long input", func(t *testing.T) {
		msg := credentials.SanitizeMessage(strings.Repeat("x", 3*credentials.MaxMessageLength))
		require.Len(t, msg, credentials.MaxMessageLength)
	})

	t.Run("keeps suspicious content", func(t *testing.T) {
		in := "<script>alert('xss')</script>"
		require.Equal(t, in, credentials.SanitizeMessage(in))
	})

	t.Run("idempotent", func(t *testing.T) {
		in := strings.Repeat("ab\x02\xffc", 5000)
		once := credentials.SanitizeMessage(in)
		require.Equal(t, once, credentials.SanitizeMessage(once))
	})
}

func TestSanitizeUserID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Arindam", "Arindam"},
		{"  john   doe  ", "john doe"},
		{"robert'); DROP TABLE--", "robert DROP TABLE--"},
		{"../../etc/passwd", "etcpasswd"},
		{"", credentials.AnonymousUserID},
		{"!!!", credentials.AnonymousUserID},
		{"user_1-a", "user_1-a"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := credentials.SanitizeUserID(tt.in)
			require.Equal(t, tt.want, got)
			require.Equal(t, got, credentials.SanitizeUserID(got))
		})
	}

	long := credentials.SanitizeUserID(strings.Repeat("a", 500))
	require.Len(t, long, credentials.MaxUserIDLength)
}

func TestFlags(t *testing.T) {
	require.Contains(t, credentials.Flags("<script>alert('xss')</script>"), credentials.FlagScriptTag)
	require.Contains(t, credentials.Flags("'; DROP TABLE users; --"), credentials.FlagSQLFragment)
	require.Contains(t, credentials.Flags("../../../etc/passwd"), credentials.FlagPathTraversal)
	require.Contains(t, credentials.Flags("hello {{ .Secret }}"), credentials.FlagTemplateInjection)
	require.Empty(t, credentials.Flags("what's the weather like today?"))
}

func TestExtract(t *testing.T) {
	bundle := credentials.Extract(map[string]any{"User-Agent": "curl/8"}, "happy birthday\x00", "  anyone ")
	require.Equal(t, "curl/8", bundle.Headers["user-agent"])
	require.Equal(t, "happy birthday", bundle.Message)
	require.Equal(t, "anyone", bundle.UserID)
	require.Empty(t, bundle.Flags)
}
