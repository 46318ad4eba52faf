package access

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jrsteele09/buddy-auth/auth"
	"github.com/jrsteele09/buddy-auth/credentials"
	apperrors "github.com/jrsteele09/buddy-auth/internal/errors"
	"github.com/pkg/errors"
)

const (
	logListingLimit = 10
	userWindow      = 100
)

// Admin command names, used for dispatch and metrics.
const (
	CommandStatus    = "status"
	CommandLogs      = "logs"
	CommandUsers     = "users"
	CommandWhitelist = "whitelist"
	CommandReset     = "reset"
	CommandOverride  = "override"
)

var (
	wordStatus    = regexp.MustCompile(`(?i)\bstatus\b`)
	wordLogs      = regexp.MustCompile(`(?i)\b(logs|security)\b`)
	wordUsers     = regexp.MustCompile(`(?i)\busers\b`)
	wordWhitelist = regexp.MustCompile(`(?i)\bwhitelist\b`)
	wordReset     = regexp.MustCompile(`(?i)\breset\b`)
	overrideCmd   = regexp.MustCompile(`(?i)\b(release|clear)?\s*override\b(?:\s+(?:for|of|on))?\s+([\p{L}\p{N}_-]+)`)
	wordAdd       = regexp.MustCompile(`(?i)\badd\b`)
	wordRemove    = regexp.MustCompile(`(?i)\bremove\b`)
	wordList      = regexp.MustCompile(`(?i)\blist\b`)
)

// ProcessAdminCommand runs an admin command for a master claim. A non-master
// claim gets a refusal prompt. The bool is false when the message matched no
// command, leaving the caller to handle it as ordinary conversation.
func (g *Gate) ProcessAdminCommand(ctx context.Context, claim auth.AuthResult, message string) (string, bool) {
	if !claim.IsMaster() {
		return g.refusal(), true
	}

	command, response := g.dispatch(claim, strings.TrimSpace(message))
	if command == "" {
		return "", false
	}

	g.metrics.RecordAdminCommand(ctx, command)
	g.logger.Info().Str("user_id", claim.UserID).Str("command", command).Msg("admin command processed")
	return response, true
}

func (g *Gate) dispatch(claim auth.AuthResult, message string) (string, string) {
	switch {
	case wordStatus.MatchString(message):
		return CommandStatus, g.statusReport()
	case wordLogs.MatchString(message):
		return CommandLogs, g.logListing()
	case wordUsers.MatchString(message):
		return CommandUsers, g.userListing()
	case wordWhitelist.MatchString(message):
		return CommandWhitelist, g.whitelistCommand(message)
	case wordReset.MatchString(message):
		return CommandReset, g.reset()
	case overrideCmd.MatchString(message):
		return CommandOverride, g.overrideCommand(claim, message)
	}
	return "", ""
}

func (g *Gate) statusReport() string {
	status := g.reporter.SecurityStatus()

	lastMaster := "never"
	if status.LastMasterAuth != nil {
		lastMaster = status.LastMasterAuth.Format(time.RFC3339)
	}
	methods := "None"
	if len(status.Methods) > 0 {
		methods = strings.Join(status.Methods, ", ")
	}

	var b strings.Builder
	b.WriteString("BUDDY SECURITY STATUS\n\n")
	b.WriteString("Authentication:\n")
	fmt.Fprintf(&b, "- Master devices: %d whitelisted\n", status.WhitelistSize)
	fmt.Fprintf(&b, "- Recent attempts: %d\n", status.RecentAttempts)
	fmt.Fprintf(&b, "- Successful: %d\n", status.Successful)
	fmt.Fprintf(&b, "- Failed: %d\n", status.Failed)
	fmt.Fprintf(&b, "- Master auths: %d\n", status.MasterAuthentications)
	fmt.Fprintf(&b, "- Active tokens: %d\n\n", status.ActiveTokens)
	fmt.Fprintf(&b, "Last master auth: %s\n", lastMaster)
	fmt.Fprintf(&b, "Auth methods: %s\n\n", methods)
	b.WriteString("System: online, access control active")
	return b.String()
}

func (g *Gate) logListing() string {
	entries := g.reporter.RecentLogs(logListingLimit)
	if len(entries) == 0 {
		return "No recent authentication logs."
	}

	var b strings.Builder
	b.WriteString("RECENT SECURITY LOGS:\n\n")
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		outcome := "FAIL"
		if e.Authenticated {
			outcome = "OK"
		}
		fmt.Fprintf(&b, "%s %s | %s | %s | %s\n", outcome, e.Timestamp.Format("15:04:05"), e.UserID, e.Method, e.Role)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (g *Gate) userListing() string {
	seen := map[string]struct{}{}
	for _, e := range g.reporter.RecentLogs(userWindow) {
		if e.Authenticated {
			seen[fmt.Sprintf("%s (%s)", e.UserID, e.Role)] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return "No authenticated users in recent logs."
	}

	list := make([]string, 0, len(seen))
	for u := range seen {
		list = append(list, u)
	}
	sort.Strings(list)
	return "RECENT USERS:\n\n- " + strings.Join(list, "\n- ")
}

// whitelistCommand is read-only; mutation goes through the admin HTTP path.
func (g *Gate) whitelistCommand(message string) string {
	switch {
	case wordAdd.MatchString(message), wordRemove.MatchString(message):
		return "Whitelist changes are made through the admin interface, not in conversation."
	case wordList.MatchString(message):
		devices := g.reporter.Whitelist()
		if len(devices) == 0 {
			return "No whitelisted devices."
		}
		return "WHITELISTED DEVICES:\n\n- " + strings.Join(devices, "\n- ")
	default:
		return "Whitelist commands: 'list'. Changes go through the admin interface."
	}
}

// reset clears the audit log only; credentials and the whitelist are kept.
func (g *Gate) reset() string {
	cleared := g.reporter.ClearLogs()
	return fmt.Sprintf("SYSTEM RESET COMPLETE\n\nCleared %d authentication logs.\nDevice whitelist and core security maintained.", cleared)
}

func (g *Gate) overrideCommand(claim auth.AuthResult, message string) string {
	m := overrideCmd.FindStringSubmatch(message)
	target := credentials.SanitizeUserID(m[2])

	if m[1] != "" {
		if g.ClearOverride(target) {
			return fmt.Sprintf("Master override cleared for user: %s", target)
		}
		return fmt.Sprintf("No override active for user: %s", target)
	}

	text, err := g.Override(claim, target)
	if err != nil {
		return g.refusal()
	}
	return text
}

// Override records that the master identity has taken over target's conversation.
func (g *Gate) Override(master auth.AuthResult, target string) (string, error) {
	if !master.IsMaster() {
		return "", errors.Wrap(apperrors.ErrNotPermitted, "[Gate.Override] only the master identity may override conversations")
	}
	if strings.TrimSpace(target) == "" {
		return "", errors.Wrap(apperrors.ErrInvalidInput, "[Gate.Override] target user required")
	}

	g.mu.Lock()
	g.overrides[target] = master.UserID
	g.mu.Unlock()

	g.logger.Info().Str("target", target).Str("master", master.UserID).Msg("conversation override set")
	return fmt.Sprintf("Master override active for user: %s", target), nil
}

// OverrideFor returns the master user id overriding userID's conversation, if any.
func (g *Gate) OverrideFor(userID string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	master, ok := g.overrides[userID]
	return master, ok
}

// ClearOverride reports whether an override was removed.
func (g *Gate) ClearOverride(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.overrides[userID]; !ok {
		return false
	}
	delete(g.overrides, userID)
	return true
}
