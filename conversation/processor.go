// Package conversation runs one inbound message through authentication, the
// session lifecycle and the access gate, and tells the caller what to do next.
package conversation

import (
	"context"

	"github.com/jrsteele09/buddy-auth/access"
	"github.com/jrsteele09/buddy-auth/auth"
	"github.com/jrsteele09/buddy-auth/credentials"
	"github.com/jrsteele09/buddy-auth/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Action is what the caller should do with the outcome.
type Action string

const (
	ActionSessionStarted Action = "session_started" // Response holds the welcome
	ActionSessionEnded   Action = "session_ended"   // Response holds the farewell
	ActionNoSession      Action = "no_session"      // end phrase without a session
	ActionSessionExpired Action = "session_expired" // Response holds the re-authenticate signal
	ActionRefused        Action = "refused"         // Response holds the refusal
	ActionAdmin          Action = "admin"           // Response holds the admin command output
	ActionRespond        Action = "respond"         // generate a reply, then call Finalize
)

// Outcome is the result of processing one message.
type Outcome struct {
	Action       Action            `json:"action"`
	Claim        auth.AuthResult   `json:"claim"`
	Decision     *access.Decision  `json:"decision,omitempty"`
	Session      *sessions.Session `json:"session,omitempty"`
	Response     string            `json:"response,omitempty"`
	Prefix       string            `json:"prefix,omitempty"`
	OverriddenBy string            `json:"overridden_by,omitempty"`
	SessionToken string            `json:"session_token,omitempty"` // set when a session starts
}

// Processor wires the arbiter, the session manager and the access gate.
type Processor struct {
	auth     *auth.Service
	sessions *sessions.Manager
	gate     *access.Gate
	logger   zerolog.Logger
}

// ProcessorOption defines a function type to modify the Processor instance.
type ProcessorOption func(*Processor)

func WithLogger(logger zerolog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

func NewProcessor(authService *auth.Service, sessionManager *sessions.Manager, gate *access.Gate, options ...ProcessorOption) (*Processor, error) {
	if authService == nil {
		return nil, errors.New("[NewProcessor] auth service is required")
	}
	if sessionManager == nil {
		return nil, errors.New("[NewProcessor] session manager is required")
	}
	if gate == nil {
		return nil, errors.New("[NewProcessor] access gate is required")
	}

	p := &Processor{
		auth:     authService,
		sessions: sessionManager,
		gate:     gate,
		logger:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

// Process handles one message. Sessions are keyed by the caller's own user id
// from the bundle, so a passphrase spoken by "anyone" opens a master session
// for "anyone". A session never authenticates a request by itself: the
// bearer token returned with the welcome carries the claim on later turns.
//
// Order: authenticate, end phrase, passphrase start, activity refresh (which
// may report expiry), access gate, admin dispatch.
func (p *Processor) Process(ctx context.Context, bundle credentials.Bundle) (Outcome, error) {
	claim, err := p.auth.Authenticate(ctx, bundle)
	if err != nil {
		return Outcome{}, errors.Wrap(err, "[Processor.Process] authenticate")
	}

	key := bundle.UserID
	out := Outcome{Claim: claim}

	if p.sessions.IsEndTrigger(bundle.Message) {
		text, ended := p.sessions.End(ctx, key)
		out.Response = text
		out.Action = ActionNoSession
		if ended {
			out.Action = ActionSessionEnded
		}
		return out, nil
	}

	if claim.Authenticated && claim.Method == auth.MethodPassphrase {
		welcome, err := p.sessions.StartFor(ctx, key, claim)
		if err != nil {
			return Outcome{}, errors.Wrap(err, "[Processor.Process] start session")
		}
		sessionToken, err := p.auth.IssueToken(ctx, claim)
		if err != nil {
			return Outcome{}, errors.Wrap(err, "[Processor.Process] issue session token")
		}
		out.Action = ActionSessionStarted
		out.Response = welcome
		out.SessionToken = sessionToken
		out.Session, _ = p.sessions.Get(key)
		return out, nil
	}

	status, session := p.sessions.Touch(ctx, key)
	switch status {
	case sessions.TouchExpired:
		out.Action = ActionSessionExpired
		out.Response = sessions.ExpiredMessage
		return out, nil
	case sessions.TouchActive:
		out.Session = session
	}

	if master, ok := p.gate.OverrideFor(key); ok {
		out.OverriddenBy = master
	}

	decision := p.gate.CheckMessageAccess(ctx, claim, bundle.Message)
	out.Decision = &decision
	if !decision.Allowed {
		out.Action = ActionRefused
		out.Response = decision.Refusal
		return out, nil
	}

	if decision.AdminCommand && claim.IsMaster() {
		if text, handled := p.gate.ProcessAdminCommand(ctx, claim, bundle.Message); handled {
			out.Action = ActionAdmin
			out.Response = text
			return out, nil
		}
	}

	out.Action = ActionRespond
	out.Prefix = p.gate.ResponsePrefix(claim)
	return out, nil
}

// Finalize filters a generated reply for the outcome's claim and adds the prefix.
func (p *Processor) Finalize(out Outcome, generated string) string {
	return out.Prefix + p.gate.FilterResponse(out.Claim, generated)
}
