// Package access decides what an identity may do with a message: whether it
// is allowed, at what response level, and which admin commands it may run.
package access

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/jrsteele09/buddy-auth/auth"
	"github.com/jrsteele09/buddy-auth/auth/authlog"
	"github.com/jrsteele09/buddy-auth/internal/telemetry"
	"github.com/jrsteele09/buddy-auth/sessions"
	"github.com/jrsteele09/buddy-auth/users"
	"github.com/rs/zerolog"
)

// ResponseLevel tells the response generator how much it may reveal.
type ResponseLevel string

const (
	LevelFull         ResponseLevel = "full"
	LevelMaster       ResponseLevel = "master"
	LevelStandard     ResponseLevel = "standard"
	LevelLimited      ResponseLevel = "limited"
	LevelAuthRequired ResponseLevel = "auth_required"
)

// Restrictions attached to a decision.
const (
	RestrictionAdminDenied   = "admin_command_denied"
	RestrictionLimited       = "limited_responses"
	RestrictionNoHistory     = "no_history"
	RestrictionBasicInfoOnly = "basic_info_only"
)

const limitedNotice = "I can help with basic questions, but for full capabilities, I need authentication first."

var adminCommandPattern = regexp.MustCompile(`(?i)\b(admin|status|logs|users|override|security|whitelist|config|reset)\b`)

// Decision is the gate's verdict for one message.
type Decision struct {
	Allowed       bool               `json:"allowed"`
	ResponseLevel ResponseLevel      `json:"response_level"`
	Restrictions  []string           `json:"restrictions"`
	Capabilities  []users.Capability `json:"capabilities"`
	AdminCommand  bool               `json:"admin_command"`
	AdminAccess   bool               `json:"admin_access"`
	CanOverride   bool               `json:"can_override"`
	Refusal       string             `json:"refusal,omitempty"` // set when Allowed is false
	Notice        string             `json:"notice,omitempty"`  // set for degraded but allowed access
}

// SecurityReporter is the part of the authentication service the admin commands read and reset.
type SecurityReporter interface {
	SecurityStatus() auth.SecurityStatus
	RecentLogs(limit int) []authlog.Entry
	ClearLogs() int
	Whitelist() []string
}

// Gate is the access policy gate.
type Gate struct {
	reporter SecurityReporter
	chooser  sessions.Chooser
	nowFunc  func() time.Time
	logger   zerolog.Logger
	metrics  *telemetry.Metrics

	mu        sync.RWMutex
	overrides map[string]string // target user id -> master user id
}

// GateOption defines a function type to modify the Gate instance.
type GateOption func(*Gate)

func WithChooser(chooser sessions.Chooser) GateOption {
	return func(g *Gate) {
		g.chooser = chooser
	}
}

// WithNowFunc sets the clock (primarily for testing)
func WithNowFunc(now func() time.Time) GateOption {
	return func(g *Gate) {
		g.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) GateOption {
	return func(g *Gate) {
		g.logger = logger
	}
}

func WithMetrics(metrics *telemetry.Metrics) GateOption {
	return func(g *Gate) {
		g.metrics = metrics
	}
}

func NewGate(reporter SecurityReporter, options ...GateOption) *Gate {
	g := &Gate{
		reporter:  reporter,
		chooser:   sessions.RandomChooser,
		nowFunc:   time.Now,
		logger:    zerolog.Nop(),
		metrics:   telemetry.GetMetrics(),
		overrides: make(map[string]string),
	}
	for _, opt := range options {
		opt(g)
	}
	if g.chooser == nil {
		g.chooser = sessions.RandomChooser
	}
	return g
}

// IsAdminCommand is a lexical classifier: any admin keyword as a whole word.
func IsAdminCommand(message string) bool {
	return adminCommandPattern.MatchString(message)
}

// CheckMessageAccess decides whether claim may act on message. Ordinary
// conversation is never blocked; only admin commands from non-master
// identities are refused.
func (g *Gate) CheckMessageAccess(ctx context.Context, claim auth.AuthResult, message string) Decision {
	d := Decision{
		Allowed:       true,
		ResponseLevel: LevelFull,
		Restrictions:  []string{},
		Capabilities:  claim.Capabilities(),
		AdminCommand:  IsAdminCommand(message),
	}

	switch {
	case !claim.Authenticated:
		if d.AdminCommand {
			d.Allowed = false
			d.ResponseLevel = LevelAuthRequired
			d.Restrictions = []string{RestrictionAdminDenied}
			d.Refusal = g.refusal()
		} else {
			d.ResponseLevel = LevelLimited
			d.Restrictions = []string{RestrictionLimited, RestrictionNoHistory, RestrictionBasicInfoOnly}
			d.Notice = limitedNotice
		}
	case claim.Role == users.RoleMaster:
		d.ResponseLevel = LevelMaster
		d.AdminAccess = true
		d.CanOverride = true
	case claim.Role == users.RoleStandard:
		d.ResponseLevel = LevelStandard
	default:
		d.ResponseLevel = LevelLimited
	}

	if claim.Authenticated && d.AdminCommand && claim.Role != users.RoleMaster {
		d.Allowed = false
		d.Restrictions = append(d.Restrictions, RestrictionAdminDenied)
		d.Refusal = g.refusal()
	}

	g.metrics.RecordAccessDecision(ctx, string(d.ResponseLevel), d.Allowed)
	if !d.Allowed {
		g.logger.Warn().Str("user_id", claim.UserID).Stringer("role", claim.Role).Msg("admin command denied")
	}
	return d
}
