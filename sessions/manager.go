package sessions

import (
	"context"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/jrsteele09/buddy-auth/auth"
	apperrors "github.com/jrsteele09/buddy-auth/internal/errors"
	"github.com/jrsteele09/buddy-auth/internal/telemetry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultIdleTimeout = 30 * time.Second

	ExpiredMessage   = "Session expired. Please authenticate to continue."
	NoSessionMessage = "No active session to end."
)

// DefaultEndPhrases end a session when a message consists of exactly one of them.
var DefaultEndPhrases = []string{
	"over and out",
	"goodbye buddy",
	"bye buddy",
	"see you later",
	"that's all",
	"done for now",
	"logout",
	"end session",
}

// Chooser picks an index in [0, n). Tests inject a fixed chooser for
// deterministic texts.
type Chooser func(n int) int

// RandomChooser is the default Chooser.
func RandomChooser(n int) int {
	return rand.IntN(n)
}

// TouchStatus is the outcome of an activity refresh.
type TouchStatus int

const (
	TouchNone    TouchStatus = iota // no session for the user
	TouchActive                     // session refreshed
	TouchExpired                    // session had expired and was removed
)

func (s TouchStatus) String() string {
	switch s {
	case TouchActive:
		return "active"
	case TouchExpired:
		return "expired"
	default:
		return "none"
	}
}

// Manager drives the session state machine: NoSession -> Active -> removed.
type Manager struct {
	repo        Repo
	idleTimeout time.Duration
	endPhrases  map[string]struct{}
	chooser     Chooser
	nowFunc     func() time.Time
	logger      zerolog.Logger
	metrics     *telemetry.Metrics
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

func WithIdleTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.idleTimeout = timeout
	}
}

// WithEndPhrases replaces the default end phrases.
func WithEndPhrases(phrases ...string) ManagerOption {
	return func(m *Manager) {
		m.endPhrases = make(map[string]struct{}, len(phrases))
		for _, p := range phrases {
			if n := normalizePhrase(p); n != "" {
				m.endPhrases[n] = struct{}{}
			}
		}
	}
}

func WithChooser(chooser Chooser) ManagerOption {
	return func(m *Manager) {
		m.chooser = chooser
	}
}

// WithNowFunc sets the clock (primarily for testing)
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMetrics(metrics *telemetry.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

func NewManager(repo Repo, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:    repo,
		chooser: RandomChooser,
		nowFunc: time.Now,
		logger:  zerolog.Nop(),
		metrics: telemetry.GetMetrics(),
	}
	WithEndPhrases(DefaultEndPhrases...)(m)

	for _, opt := range options {
		opt(m)
	}

	if m.idleTimeout <= 0 {
		m.idleTimeout = DefaultIdleTimeout
	}
	if m.chooser == nil {
		m.chooser = RandomChooser
	}
	return m
}

// IdleTimeout is the timeout given to new sessions.
func (m *Manager) IdleTimeout() time.Duration {
	return m.idleTimeout
}

// Start creates or replaces the session keyed by the claim's own user id and
// returns the welcome text.
func (m *Manager) Start(ctx context.Context, claim auth.AuthResult) (string, error) {
	return m.StartFor(ctx, claim.UserID, claim)
}

// StartFor creates or replaces userID's session for an authenticated claim
// and returns the welcome text, which names the claimed identity.
func (m *Manager) StartFor(ctx context.Context, userID string, claim auth.AuthResult) (string, error) {
	if !claim.Authenticated {
		return "", errors.Wrap(apperrors.ErrNotPermitted, "[Manager.StartFor] claim is not authenticated")
	}
	if userID == "" {
		userID = claim.UserID
	}

	now := m.nowFunc()
	err := m.repo.Update(userID, func(*Session) (*Session, error) {
		return &Session{
			UserID:        userID,
			Identity:      claim.UserID,
			Authenticated: true,
			Role:          claim.Role,
			Method:        claim.Method,
			State:         StateIdle,
			StartedAt:     now,
			LastActivity:  now,
			IdleTimeout:   m.idleTimeout,
		}, nil
	})
	if err != nil {
		return "", errors.Wrap(err, "[Manager.StartFor] repo.Update")
	}

	m.metrics.RecordSessionTransition(ctx, "start")
	m.logger.Info().Str("user_id", userID).Str("identity", claim.UserID).Str("method", claim.Method).Dur("idle_timeout", m.idleTimeout).Msg("session started")
	return m.welcome(claim.UserID, now), nil
}

// Touch refreshes an active session's activity time and counts the turn.
// An expired session is removed and reported as TouchExpired.
func (m *Manager) Touch(ctx context.Context, userID string) (TouchStatus, *Session) {
	now := m.nowFunc()
	status := TouchNone
	var touched *Session

	_ = m.repo.Update(userID, func(current *Session) (*Session, error) {
		switch {
		case current == nil:
			return nil, nil
		case current.Expired(now):
			status = TouchExpired
			return nil, nil
		}
		current.LastActivity = now
		current.Turns++
		status = TouchActive
		touched = current
		return current, nil
	})

	if status == TouchExpired {
		m.expired(ctx, userID)
	}
	return status, touched
}

// IsActive reports whether the user has an unexpired session. An expired
// record found here is removed.
func (m *Manager) IsActive(userID string) bool {
	_, ok := m.Get(userID)
	return ok
}

// Get returns the user's unexpired session. An expired record found here is removed.
func (m *Manager) Get(userID string) (*Session, bool) {
	now := m.nowFunc()
	var found *Session
	expired := false

	_ = m.repo.Update(userID, func(current *Session) (*Session, error) {
		if current == nil {
			return nil, nil
		}
		if current.Expired(now) {
			expired = true
			return nil, nil
		}
		found = current
		return current, nil
	})

	if expired {
		m.expired(context.Background(), userID)
	}
	return found, found != nil
}

// Active lists every unexpired session ordered by start time, removing expired ones.
func (m *Manager) Active() []*Session {
	var active []*Session
	for _, s := range m.repo.List() {
		if current, ok := m.Get(s.UserID); ok {
			active = append(active, current)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].StartedAt.Before(active[j].StartedAt)
	})
	return active
}

// SetState records the conversation state of an active session.
func (m *Manager) SetState(userID string, state State) error {
	now := m.nowFunc()
	err := m.repo.Update(userID, func(current *Session) (*Session, error) {
		if current == nil || current.Expired(now) {
			return nil, apperrors.ErrSessionNotFound
		}
		current.State = state
		return current, nil
	})
	if err != nil {
		return errors.Wrap(err, "[Manager.SetState]")
	}
	return nil
}

// IsEndTrigger reports whether message is exactly one of the end phrases,
// ignoring case, surrounding whitespace and trailing punctuation.
func (m *Manager) IsEndTrigger(message string) bool {
	_, ok := m.endPhrases[normalizePhrase(message)]
	return ok
}

// End removes the user's session and returns a farewell with its duration and
// turn count. Without an active session it returns NoSessionMessage and false.
func (m *Manager) End(ctx context.Context, userID string) (string, bool) {
	now := m.nowFunc()
	var ended *Session
	expired := false

	_ = m.repo.Update(userID, func(current *Session) (*Session, error) {
		if current == nil {
			return nil, nil
		}
		if current.Expired(now) {
			expired = true
			return nil, nil
		}
		ended = current
		return nil, nil
	})

	if expired {
		m.expired(ctx, userID)
	}
	if ended == nil {
		return NoSessionMessage, false
	}

	duration := now.Sub(ended.StartedAt).Round(time.Second)
	m.metrics.RecordSessionTransition(ctx, "end")
	m.logger.Info().Str("user_id", userID).Dur("duration", duration).Int("turns", ended.Turns).Msg("session ended")
	name := ended.Identity
	if name == "" {
		name = userID
	}
	return m.farewell(name, duration, ended.Turns), true
}

func (m *Manager) expired(ctx context.Context, userID string) {
	m.metrics.RecordSessionTransition(ctx, "expire")
	m.logger.Info().Str("user_id", userID).Msg("session expired")
}

func normalizePhrase(s string) string {
	s = strings.ReplaceAll(strings.ToLower(s), "’", "'")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, ".!?")
	return strings.TrimSpace(s)
}
