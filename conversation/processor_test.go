package conversation_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/buddy-auth/access"
	"github.com/jrsteele09/buddy-auth/auth"
	"github.com/jrsteele09/buddy-auth/conversation"
	"github.com/jrsteele09/buddy-auth/credentials"
	"github.com/jrsteele09/buddy-auth/sessions"
	"github.com/jrsteele09/buddy-auth/token"
	"github.com/jrsteele09/buddy-auth/users"
	"github.com/stretchr/testify/require"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	clock     *clock
	auth      *auth.Service
	sessions  *sessions.Manager
	gate      *access.Gate
	processor *conversation.Processor
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	c := &clock{now: time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)}
	first := func(int) int { return 0 }

	tokens := token.New(token.NewInMemoryRepo(), token.NewHMACSigner("0123456789abcdef0123456789abcdef"), token.WithNowFunc(c.Now))
	authService, err := auth.NewService(auth.DefaultPolicy(), tokens, auth.WithNowFunc(c.Now))
	require.NoError(t, err)

	sessionManager := sessions.NewManager(sessions.NewInMemoryRepo(),
		sessions.WithNowFunc(c.Now),
		sessions.WithChooser(first),
	)
	gate := access.NewGate(authService, access.WithNowFunc(c.Now), access.WithChooser(first))

	processor, err := conversation.NewProcessor(authService, sessionManager, gate)
	require.NoError(t, err)

	return &fixture{clock: c, auth: authService, sessions: sessionManager, gate: gate, processor: processor}
}

func (f *fixture) send(t *testing.T, headers map[string]any, message, userID string) conversation.Outcome {
	t.Helper()
	out, err := f.processor.Process(context.Background(), credentials.Extract(headers, message, userID))
	require.NoError(t, err)
	return out
}

func TestProcess_PassphraseStartsSession(t *testing.T) {
	f := setupFixture(t)

	out := f.send(t, map[string]any{}, "happy birthday", "anyone")
	require.Equal(t, conversation.ActionSessionStarted, out.Action)
	require.True(t, out.Claim.Authenticated)
	require.Equal(t, users.RoleMaster, out.Claim.Role)
	require.Equal(t, auth.MethodPassphrase, out.Claim.Method)
	require.Equal(t, auth.DefaultMasterUser, out.Claim.UserID)
	require.Contains(t, out.Response, auth.DefaultMasterUser)
	require.Contains(t, out.Response, "Good evening")
	require.NotNil(t, out.Session)
	require.True(t, f.sessions.IsActive("anyone"))
}

func TestProcess_SecondMessageRefreshesSession(t *testing.T) {
	f := setupFixture(t)

	start := f.send(t, nil, "happy birthday", "anyone")
	require.NotEmpty(t, start.SessionToken)
	f.clock.Advance(10 * time.Second)

	out := f.send(t, map[string]any{"Authorization": "Bearer " + start.SessionToken}, "what's on my calendar", "anyone")
	require.Equal(t, conversation.ActionRespond, out.Action)
	require.True(t, f.sessions.IsActive("anyone"))
	require.NotNil(t, out.Session)
	require.Equal(t, 1, out.Session.Turns)
	require.Equal(t, f.clock.now, out.Session.LastActivity)

	require.True(t, out.Claim.Authenticated)
	require.Equal(t, auth.MethodToken, out.Claim.Method)
	require.Equal(t, auth.DefaultMasterUser, out.Claim.UserID)
	require.Equal(t, access.LevelMaster, out.Decision.ResponseLevel)
	require.Equal(t, "Good evening, Arindam. How may I assist you today? ", out.Prefix)
}

func TestProcess_SessionAloneGrantsNothing(t *testing.T) {
	f := setupFixture(t)

	f.send(t, nil, "happy birthday", "anyone")
	f.clock.Advance(5 * time.Second)

	out := f.send(t, map[string]any{"User-Agent": "curl/8"}, "what's on my calendar", "anyone")
	require.Equal(t, conversation.ActionRespond, out.Action)
	require.NotNil(t, out.Session)
	require.Equal(t, 1, out.Session.Turns)
	require.False(t, out.Claim.Authenticated)
	require.Equal(t, access.LevelLimited, out.Decision.ResponseLevel)

	logsBefore := len(f.auth.RecentLogs(100))
	out = f.send(t, map[string]any{"User-Agent": "curl/8"}, "reset", "anyone")
	require.Equal(t, conversation.ActionRefused, out.Action)
	require.False(t, out.Claim.Authenticated)
	require.Len(t, f.auth.RecentLogs(100), logsBefore+1)
}

func TestProcess_ExpiredSession(t *testing.T) {
	f := setupFixture(t)

	f.send(t, nil, "happy birthday", "anyone")
	f.clock.Advance(45 * time.Second)

	out := f.send(t, nil, "are you still there", "anyone")
	require.Equal(t, conversation.ActionSessionExpired, out.Action)
	require.Equal(t, sessions.ExpiredMessage, out.Response)
	require.False(t, f.sessions.IsActive("anyone"))

	out = f.send(t, nil, "are you still there", "anyone")
	require.Equal(t, conversation.ActionRespond, out.Action)
	require.False(t, out.Claim.Authenticated)
	require.Equal(t, access.LevelLimited, out.Decision.ResponseLevel)
}

func TestProcess_EndPhrase(t *testing.T) {
	f := setupFixture(t)

	f.send(t, nil, "happy birthday", "anyone")
	f.clock.Advance(5 * time.Second)
	f.send(t, nil, "tell me a joke", "anyone")
	f.clock.Advance(5 * time.Second)

	out := f.send(t, nil, "  Over And Out  ", "anyone")
	require.Equal(t, conversation.ActionSessionEnded, out.Action)
	require.Contains(t, out.Response, "10s")
	require.Contains(t, out.Response, "1 turn")
	require.False(t, f.sessions.IsActive("anyone"))

	out = f.send(t, nil, "over and out", "anyone")
	require.Equal(t, conversation.ActionNoSession, out.Action)
	require.Equal(t, sessions.NoSessionMessage, out.Response)
}

func TestProcess_AccessGate(t *testing.T) {
	f := setupFixture(t)

	out := f.send(t, nil, "what's the weather", "stranger")
	require.Equal(t, conversation.ActionRespond, out.Action)
	require.True(t, out.Decision.Allowed)
	require.Equal(t, access.LevelLimited, out.Decision.ResponseLevel)
	require.Empty(t, out.Prefix)

	out = f.send(t, nil, "show admin status", "stranger")
	require.Equal(t, conversation.ActionRefused, out.Action)
	require.False(t, out.Decision.Allowed)
	require.NotEmpty(t, out.Response)

	out = f.send(t, map[string]any{"User-Agent": "Mozilla (iPhone)"}, "show me the logs", "stranger")
	require.Equal(t, conversation.ActionRefused, out.Action)
	require.Equal(t, users.RoleStandard, out.Claim.Role)
}

func TestProcess_MasterAdminCommand(t *testing.T) {
	f := setupFixture(t)

	start := f.send(t, nil, "happy birthday", "anyone")
	bearer := map[string]any{"Authorization": "Bearer " + start.SessionToken}

	out := f.send(t, bearer, "give me the security status", "anyone")
	require.Equal(t, conversation.ActionAdmin, out.Action)
	require.Contains(t, out.Response, "BUDDY SECURITY STATUS")
	require.Contains(t, out.Response, "Master auths: 2")
	require.Contains(t, out.Response, "Active tokens: 1")

	out = f.send(t, bearer, "reset", "anyone")
	require.Equal(t, conversation.ActionAdmin, out.Action)
	require.Contains(t, out.Response, "Cleared 3 authentication logs.")
	require.Len(t, f.auth.Whitelist(), len(auth.DefaultMasterDevices))
}

func TestProcess_TokenBeatsPassphrase(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	tok, err := f.auth.IssueToken(ctx, auth.AuthResult{Authenticated: true, UserID: "token-holder", Role: users.RoleMaster, Method: auth.MethodPassphrase})
	require.NoError(t, err)

	out := f.send(t, map[string]any{"Authorization": "Bearer " + tok}, "happy birthday", "anyone")
	require.Equal(t, conversation.ActionRespond, out.Action)
	require.Equal(t, "token-holder", out.Claim.UserID)
	require.Equal(t, auth.MethodToken, out.Claim.Method)
	require.False(t, f.sessions.IsActive("anyone"))
}

func TestProcess_OverrideAndFinalize(t *testing.T) {
	f := setupFixture(t)

	start := f.send(t, nil, "happy birthday", "anyone")
	out := f.send(t, map[string]any{"Authorization": "Bearer " + start.SessionToken}, "override bob", "anyone")
	require.Equal(t, conversation.ActionAdmin, out.Action)

	out = f.send(t, nil, "hello there", "bob")
	require.Equal(t, auth.DefaultMasterUser, out.OverriddenBy)
	require.Equal(t,
		"I'm Buddy, your AI assistant. For full access, I need to verify your identity first.",
		f.processor.Finalize(out, "I remember everything you told me."),
	)
	require.Equal(t, "It is sunny.", f.processor.Finalize(out, "It is sunny."))
}

func TestNewProcessor_Validation(t *testing.T) {
	_, err := conversation.NewProcessor(nil, nil, nil)
	require.Error(t, err)
}
