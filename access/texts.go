package access

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/jrsteele09/buddy-auth/auth"
	"github.com/jrsteele09/buddy-auth/sessions"
	"github.com/jrsteele09/buddy-auth/users"
)

const (
	limitedResponseLength = 100
	boundaryMessage       = "I can help with general questions and tasks. Administrative functions require master-level access."
)

// Refusals never say which credential was missing or wrong.
var refusalPrompts = []string{
	"I'm running in safe mode right now. Authenticate first and I can do a lot more.",
	"That one needs master access. Say the magic words and we'll talk.",
	"Those controls are locked for now. Prove who you are and I'll open them up.",
	"I can't go there without proper authentication.",
}

var limitedResponses = []string{
	"I'm Buddy, your AI assistant. For full access, I need to verify your identity first.",
	"Hello! I can provide basic information, but my advanced capabilities require authentication.",
	"I'm here to help with general questions. For complete system access, please authenticate.",
}

var (
	personalContent = regexp.MustCompile(`(?i)\b(personal|history|remember|you)\b`)
	adminContent    = regexp.MustCompile(`(?i)\b(admin|security|whitelist|logs)\b`)
)

func (g *Gate) refusal() string {
	return refusalPrompts[g.choose(len(refusalPrompts))]
}

func (g *Gate) choose(n int) int {
	i := g.chooser(n)
	if i < 0 || i >= n {
		return 0
	}
	return i
}

// FilterResponse replaces generated text the claim should not see.
// Unauthenticated callers lose long or personal answers; Standard callers lose
// answers that mention admin vocabulary; Master responses pass through.
func (g *Gate) FilterResponse(claim auth.AuthResult, response string) string {
	switch {
	case !claim.Authenticated:
		if utf8.RuneCountInString(response) > limitedResponseLength || personalContent.MatchString(response) {
			return limitedResponses[g.choose(len(limitedResponses))]
		}
	case claim.Role == users.RoleStandard:
		if adminContent.MatchString(response) {
			return boundaryMessage
		}
	}
	return response
}

// ResponsePrefix is prepended to a response to show the caller's authentication state.
func (g *Gate) ResponsePrefix(claim auth.AuthResult) string {
	if !claim.Authenticated {
		return ""
	}

	switch claim.Role {
	case users.RoleMaster:
		switch claim.Method {
		case auth.MethodPassphrase:
			return fmt.Sprintf("Welcome back, %s. All systems are now at your command. ", claim.UserID)
		case auth.MethodToken:
			return fmt.Sprintf("Good %s, %s. How may I assist you today? ", sessions.GreetingBucket(g.nowFunc()), claim.UserID)
		default:
			return fmt.Sprintf("Master protocols activated for %s. Full administrative access granted. ", claim.UserID)
		}
	case users.RoleStandard:
		return "Hello! I'm ready to assist you. "
	}
	return ""
}
