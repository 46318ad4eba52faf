package sessions_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/buddy-auth/auth"
	apperrors "github.com/jrsteele09/buddy-auth/internal/errors"
	"github.com/jrsteele09/buddy-auth/sessions"
	"github.com/jrsteele09/buddy-auth/users"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func first(int) int { return 0 }

func setup(t *testing.T, options ...sessions.ManagerOption) (*sessions.Manager, *sessions.InMemoryRepo, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	repo := sessions.NewInMemoryRepo()
	opts := append([]sessions.ManagerOption{
		sessions.WithNowFunc(c.Now),
		sessions.WithChooser(first),
	}, options...)
	return sessions.NewManager(repo, opts...), repo, c
}

func passphraseClaim() auth.AuthResult {
	return auth.AuthResult{Authenticated: true, UserID: "Arindam", Role: users.RoleMaster, Method: auth.MethodPassphrase}
}

func TestStart_Welcome(t *testing.T) {
	m, repo, _ := setup(t)

	welcome, err := m.Start(context.Background(), passphraseClaim())
	require.NoError(t, err)
	require.Equal(t, "Welcome back, Arindam. Good morning! How may I assist you today?", welcome)

	stored, err := repo.Get("Arindam")
	require.NoError(t, err)
	require.True(t, stored.Authenticated)
	require.Equal(t, users.RoleMaster, stored.Role)
	require.Equal(t, auth.MethodPassphrase, stored.Method)
	require.Equal(t, sessions.StateIdle, stored.State)
	require.Zero(t, stored.Turns)
	require.Equal(t, sessions.DefaultIdleTimeout, stored.IdleTimeout)
}

func TestStartFor_KeysByCaller(t *testing.T) {
	m, repo, _ := setup(t)
	ctx := context.Background()

	welcome, err := m.StartFor(ctx, "anyone", passphraseClaim())
	require.NoError(t, err)
	require.Contains(t, welcome, "Arindam")

	stored, err := repo.Get("anyone")
	require.NoError(t, err)
	require.Equal(t, "anyone", stored.UserID)
	require.Equal(t, "Arindam", stored.Identity)
	require.False(t, m.IsActive("Arindam"))

	text, ended := m.End(ctx, "anyone")
	require.True(t, ended)
	require.Contains(t, text, "Arindam")
}

func TestStart_EveryTemplateNamesUserAndBucket(t *testing.T) {
	for i := 0; i < 3; i++ {
		for _, hour := range []int{8, 14, 20} {
			c := &clock{now: time.Date(2026, 3, 1, hour, 0, 0, 0, time.UTC)}
			idx := i
			m := sessions.NewManager(sessions.NewInMemoryRepo(),
				sessions.WithNowFunc(c.Now),
				sessions.WithChooser(func(int) int { return idx }),
			)

			welcome, err := m.Start(context.Background(), passphraseClaim())
			require.NoError(t, err)
			require.Contains(t, welcome, "Arindam")
			require.Contains(t, welcome, "Good "+sessions.GreetingBucket(c.now))
		}
	}
}

func TestStart_RejectsUnauthenticated(t *testing.T) {
	m, _, _ := setup(t)
	_, err := m.Start(context.Background(), auth.Anonymous("guest", time.Now()))
	require.ErrorIs(t, err, apperrors.ErrNotPermitted)
	require.False(t, m.IsActive("guest"))
}

func TestGreetingBucket(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, "morning"},
		{11, "morning"},
		{12, "afternoon"},
		{16, "afternoon"},
		{17, "evening"},
		{23, "evening"},
	}
	for _, tt := range tests {
		got := sessions.GreetingBucket(time.Date(2026, 1, 1, tt.hour, 30, 0, 0, time.UTC))
		require.Equal(t, tt.want, got, "hour %d", tt.hour)
	}
}

func TestTouch_RefreshesAndCounts(t *testing.T) {
	m, _, c := setup(t)
	ctx := context.Background()

	_, err := m.Start(ctx, passphraseClaim())
	require.NoError(t, err)

	c.Advance(20 * time.Second)
	status, s := m.Touch(ctx, "Arindam")
	require.Equal(t, sessions.TouchActive, status)
	require.Equal(t, 1, s.Turns)
	require.Equal(t, c.Now(), s.LastActivity)

	c.Advance(20 * time.Second)
	status, s = m.Touch(ctx, "Arindam")
	require.Equal(t, sessions.TouchActive, status)
	require.Equal(t, 2, s.Turns)
	require.True(t, m.IsActive("Arindam"))

	status, s = m.Touch(ctx, "nobody")
	require.Equal(t, sessions.TouchNone, status)
	require.Nil(t, s)
}

func TestExpiry_IsLazyAndRemoves(t *testing.T) {
	m, repo, c := setup(t)
	ctx := context.Background()

	_, err := m.Start(ctx, passphraseClaim())
	require.NoError(t, err)

	c.Advance(31 * time.Second)

	_, err = repo.Get("Arindam")
	require.NoError(t, err, "nothing removes the record before it is looked up")

	require.False(t, m.IsActive("Arindam"))
	_, err = repo.Get("Arindam")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	require.False(t, m.IsActive("Arindam"))
}

func TestTouch_ReportsExpiry(t *testing.T) {
	m, _, c := setup(t, sessions.WithIdleTimeout(time.Minute))
	ctx := context.Background()

	_, err := m.Start(ctx, passphraseClaim())
	require.NoError(t, err)

	c.Advance(time.Minute)
	status, _ := m.Touch(ctx, "Arindam")
	require.Equal(t, sessions.TouchActive, status, "exactly the timeout is still active")

	c.Advance(time.Minute + time.Second)
	status, _ = m.Touch(ctx, "Arindam")
	require.Equal(t, sessions.TouchExpired, status)

	status, _ = m.Touch(ctx, "Arindam")
	require.Equal(t, sessions.TouchNone, status)
}

func TestIsEndTrigger(t *testing.T) {
	m, _, _ := setup(t)

	tests := []struct {
		message string
		want    bool
	}{
		{"over and out", true},
		{"  Over And Out  ", true},
		{"Over and out!", true},
		{"GOODBYE   buddy.", true},
		{"That’s all", true},
		{"logout", true},
		{"over and outline", false},
		{"I said over and out", false},
		{"hello", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			require.Equal(t, tt.want, m.IsEndTrigger(tt.message))
		})
	}
}

func TestIsEndTrigger_Configured(t *testing.T) {
	m, _, _ := setup(t, sessions.WithEndPhrases("Roger that", " "))
	require.True(t, m.IsEndTrigger("roger THAT"))
	require.False(t, m.IsEndTrigger("over and out"))
}

func TestEnd(t *testing.T) {
	m, repo, c := setup(t)
	ctx := context.Background()

	text, ended := m.End(ctx, "Arindam")
	require.False(t, ended)
	require.Equal(t, sessions.NoSessionMessage, text)

	_, err := m.Start(ctx, passphraseClaim())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		c.Advance(10 * time.Second)
		m.Touch(ctx, "Arindam")
	}

	text, ended = m.End(ctx, "Arindam")
	require.True(t, ended)
	require.Equal(t, "Over and out, Arindam. Session closed after 30s and 3 turns.", text)

	_, err = repo.Get("Arindam")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	text, ended = m.End(ctx, "Arindam")
	require.False(t, ended)
	require.Equal(t, sessions.NoSessionMessage, text)
}

func TestEnd_ExpiredSessionIsNeutral(t *testing.T) {
	m, _, c := setup(t)
	ctx := context.Background()

	_, err := m.Start(ctx, passphraseClaim())
	require.NoError(t, err)
	c.Advance(time.Hour)

	text, ended := m.End(ctx, "Arindam")
	require.False(t, ended)
	require.Equal(t, sessions.NoSessionMessage, text)
}

func TestActiveAndSetState(t *testing.T) {
	m, _, c := setup(t)
	ctx := context.Background()

	_, err := m.Start(ctx, passphraseClaim())
	require.NoError(t, err)
	c.Advance(20 * time.Second)
	_, err = m.Start(ctx, auth.AuthResult{Authenticated: true, UserID: "guest", Role: users.RoleStandard, Method: auth.MethodPassphrase})
	require.NoError(t, err)

	active := m.Active()
	require.Len(t, active, 2)
	require.Equal(t, "Arindam", active[0].UserID)
	require.Equal(t, 10*time.Second, active[0].Remaining(c.Now()))

	require.NoError(t, m.SetState("guest", sessions.StateAwaitingConfirmation))
	s, ok := m.Get("guest")
	require.True(t, ok)
	require.Equal(t, sessions.StateAwaitingConfirmation, s.State)

	c.Advance(15 * time.Second)
	active = m.Active()
	require.Len(t, active, 1)
	require.Equal(t, "guest", active[0].UserID)

	require.ErrorIs(t, m.SetState("Arindam", sessions.StateIdle), apperrors.ErrSessionNotFound)
}

func TestSession_UnauthenticatedIsExpired(t *testing.T) {
	now := time.Now()
	s := &sessions.Session{Authenticated: false, LastActivity: now, IdleTimeout: time.Hour}
	require.True(t, s.Expired(now))
	require.Zero(t, s.Remaining(now))
}

func TestConcurrentTouchesDoNotLoseUpdates(t *testing.T) {
	m, _, _ := setup(t, sessions.WithIdleTimeout(time.Hour))
	ctx := context.Background()

	const usersN, touches = 8, 50
	for u := 0; u < usersN; u++ {
		_, err := m.Start(ctx, auth.AuthResult{Authenticated: true, UserID: fmt.Sprintf("user-%d", u), Role: users.RoleStandard, Method: auth.MethodPassphrase})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for u := 0; u < usersN; u++ {
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(userID string) {
				defer wg.Done()
				for i := 0; i < touches; i++ {
					m.Touch(ctx, userID)
				}
			}(fmt.Sprintf("user-%d", u))
		}
	}
	wg.Wait()

	for u := 0; u < usersN; u++ {
		s, ok := m.Get(fmt.Sprintf("user-%d", u))
		require.True(t, ok)
		require.Equal(t, 4*touches, s.Turns)
	}
}

func TestInMemoryRepo_DeleteAndList(t *testing.T) {
	repo := sessions.NewInMemoryRepo()
	require.ErrorIs(t, repo.Delete("missing"), apperrors.ErrSessionNotFound)

	require.NoError(t, repo.Update("a", func(*sessions.Session) (*sessions.Session, error) {
		return &sessions.Session{UserID: "a", Authenticated: true}, nil
	}))
	require.Len(t, repo.List(), 1)

	require.NoError(t, repo.Delete("a"))
	require.Empty(t, repo.List())

	err := repo.Update("b", func(*sessions.Session) (*sessions.Session, error) {
		return nil, apperrors.ErrInvalidInput
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	require.Empty(t, repo.List())
}
