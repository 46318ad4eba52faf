package credentials

import "regexp"

const (
	FlagScriptTag         = "script_tag"
	FlagSQLFragment       = "sql_fragment"
	FlagPathTraversal     = "path_traversal"
	FlagTemplateInjection = "template_injection"
)

var suspiciousPatterns = []struct {
	flag    string
	pattern *regexp.Regexp
}{
	{FlagScriptTag, regexp.MustCompile(`(?i)<\s*/?\s*script\b|javascript:`)},
	{FlagSQLFragment, regexp.MustCompile(`(?i)('|;)\s*(drop|delete|insert|update|select|union)\s|--\s*$|\bunion\s+select\b`)},
	{FlagPathTraversal, regexp.MustCompile(`\.\.[/\\]`)},
	{FlagTemplateInjection, regexp.MustCompile(`\{\{.*\}\}|\$\{.*\}|<%.*%>`)},
}

// Flags lists the suspicious-content markers found in message. Natural
// language legitimately contains odd punctuation, so these are recorded in
// the authentication log and never used to reject input.
func Flags(message string) []string {
	var flags []string
	for _, p := range suspiciousPatterns {
		if p.pattern.MatchString(message) {
			flags = append(flags, p.flag)
		}
	}
	return flags
}
