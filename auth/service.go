package auth

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jrsteele09/buddy-auth/auth/authlog"
	"github.com/jrsteele09/buddy-auth/credentials"
	apperrors "github.com/jrsteele09/buddy-auth/internal/errors"
	"github.com/jrsteele09/buddy-auth/internal/telemetry"
	"github.com/jrsteele09/buddy-auth/token"
	"github.com/jrsteele09/buddy-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultMasterUser = "Arindam"
	DefaultPassphrase = "happy birthday"

	statusWindow       = 100
	authKeyword        = "authenticate"
	unknownClientIP    = "unknown"
	forwardedForHeader = "x-forwarded-for"
)

// Client IP headers in priority order. x-forwarded-for is handled separately
// because only its first hop is used.
var clientIPHeaders = []string{"cf-connecting-ip", forwardedForHeader, "x-real-ip"}

// Policy configures the identity rules of the Service.
type Policy struct {
	MasterUser       string
	Passphrase       string
	MasterDevices    []string
	EnableVoiceAuth  bool
	EnableDeviceAuth bool
}

// DefaultPolicy has every evaluator enabled and the stock master identity.
func DefaultPolicy() Policy {
	return Policy{
		MasterUser:       DefaultMasterUser,
		Passphrase:       DefaultPassphrase,
		MasterDevices:    append([]string(nil), DefaultMasterDevices...),
		EnableVoiceAuth:  true,
		EnableDeviceAuth: true,
	}
}

// SecurityStatus summarises the recent authentication window.
type SecurityStatus struct {
	WhitelistSize         int        `json:"whitelist_size"`
	RecentAttempts        int        `json:"recent_attempts"`
	Successful            int        `json:"successful_authentications"`
	Failed                int        `json:"failed_authentications"`
	MasterAuthentications int        `json:"master_authentications"`
	LastMasterAuth        *time.Time `json:"last_master_auth,omitempty"`
	Methods               []string   `json:"authentication_methods"`
	ActiveTokens          int        `json:"active_tokens"`
}

// Service is the authentication arbiter. It owns the evaluator chain, the
// device whitelist, the token manager and the authentication log.
type Service struct {
	masterUser string
	evaluators []Evaluator
	whitelist  *Whitelist
	tokens     *token.Manager
	authLog    authlog.Repo
	logger     zerolog.Logger
	metrics    *telemetry.Metrics
	nowFunc    func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowFunc sets the clock (primarily for testing)
func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuthLog(repo authlog.Repo) ServiceOption {
	return func(s *Service) {
		s.authLog = repo
	}
}

func WithMetrics(m *telemetry.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithEvaluators replaces the evaluator chain built from the Policy.
func WithEvaluators(evaluators ...Evaluator) ServiceOption {
	return func(s *Service) {
		s.evaluators = evaluators
	}
}

// NewService builds the arbiter. The default chain is token, then passphrase
// (when voice auth is enabled), then device (when device auth is enabled).
func NewService(policy Policy, tokens *token.Manager, options ...ServiceOption) (*Service, error) {
	if tokens == nil {
		return nil, errors.New("[NewService] token manager is required")
	}
	if strings.TrimSpace(policy.MasterUser) == "" {
		return nil, errors.New("[NewService] master user is required")
	}

	s := &Service{
		masterUser: policy.MasterUser,
		whitelist:  NewWhitelist(policy.MasterDevices...),
		tokens:     tokens,
		logger:     zerolog.Nop(),
		metrics:    telemetry.GetMetrics(),
		nowFunc:    time.Now,
	}

	s.evaluators = []Evaluator{NewTokenEvaluator(tokens)}
	if policy.EnableVoiceAuth {
		passphrase, err := NewPassphraseEvaluator(policy.Passphrase, policy.MasterUser)
		if err != nil {
			return nil, errors.Wrap(err, "[NewService] passphrase evaluator")
		}
		s.evaluators = append(s.evaluators, passphrase)
	}
	if policy.EnableDeviceAuth {
		s.evaluators = append(s.evaluators, NewDeviceEvaluator(s.whitelist, policy.MasterUser))
	}

	for _, opt := range options {
		opt(s)
	}

	if s.authLog == nil {
		s.authLog = authlog.NewRingRepo(authlog.DefaultCapacity)
	}
	return s, nil
}

// Authenticate runs the evaluators in priority order and returns the first
// positive claim, or an anonymous claim for the bundle's user id. Exactly one
// log entry is appended per call. Evaluator faults are logged and skipped; a
// fault in the arbiter itself returns ErrAuthenticationUnavailable.
func (s *Service) Authenticate(ctx context.Context, bundle credentials.Bundle) (result AuthResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("authentication arbiter failed")
			result = AuthResult{}
			err = apperrors.ErrAuthenticationUnavailable
		}
	}()

	now := s.nowFunc()
	result = Anonymous(bundle.UserID, now)

	var faults []string
	for _, evaluator := range s.evaluators {
		claim, evalErr := evaluateSafely(evaluator, bundle)
		if evalErr != nil {
			faults = append(faults, evaluator.Name())
			s.metrics.RecordEvaluatorFault(ctx, evaluator.Name())
			s.logger.Error().Err(evalErr).Str("evaluator", evaluator.Name()).Msg("credential evaluator fault")
			continue
		}
		if claim != nil && claim.Authenticated {
			result = *claim
			result.Timestamp = now
			break
		}
	}

	s.record(ctx, result, bundle, faults)
	return result, nil
}

func (s *Service) record(ctx context.Context, result AuthResult, bundle credentials.Bundle, faults []string) {
	s.authLog.Append(authlog.Entry{
		ID:             uuid.New().String(),
		Timestamp:      result.Timestamp,
		Authenticated:  result.Authenticated,
		UserID:         result.UserID,
		Role:           result.Role,
		Method:         result.Method,
		DeviceID:       result.DeviceID,
		UserAgent:      bundle.Headers.Get("user-agent"),
		ClientIP:       ClientIP(bundle.Headers),
		MessageLength:  utf8.RuneCountInString(bundle.Message),
		HasAuthKeyword: strings.Contains(strings.ToLower(bundle.Message), authKeyword),
		Flags:          bundle.Flags,
		Faults:         faults,
	})
	s.metrics.RecordAuthAttempt(ctx, result.Method, result.Authenticated)

	if result.Authenticated {
		s.logger.Info().Str("user_id", result.UserID).Str("method", result.Method).Stringer("role", result.Role).Msg("authentication successful")
		return
	}
	s.logger.Warn().Str("user_id", result.UserID).Strs("flags", bundle.Flags).Msg("authentication failed")
}

// ClientIP picks the best-effort caller address from proxy headers.
func ClientIP(headers credentials.Headers) string {
	for _, h := range clientIPHeaders {
		value := strings.TrimSpace(headers.Get(h))
		if value == "" {
			continue
		}
		if h == forwardedForHeader {
			first, _, _ := strings.Cut(value, ",")
			value = strings.TrimSpace(first)
			if value == "" {
				continue
			}
		}
		return value
	}
	return unknownClientIP
}

// IssueToken issues a session token for a master claim.
func (s *Service) IssueToken(ctx context.Context, claim AuthResult) (string, error) {
	if !claim.IsMaster() {
		return "", errors.Wrap(apperrors.ErrNotPermitted, "[Service.IssueToken] only the master identity may hold a session token")
	}

	record, err := s.tokens.Issue(claim.UserID, claim.Role, claim.DeviceID, claim.Method)
	if err != nil {
		return "", errors.Wrap(err, "[Service.IssueToken] tokens.Issue")
	}

	s.metrics.RecordTokens(ctx, "issued", 1)
	s.logger.Info().Str("user_id", claim.UserID).Time("expires_at", record.ExpiresAt).Msg("session token issued")
	return record.Token, nil
}

// TokenExpiry is the lifetime of tokens returned by IssueToken.
func (s *Service) TokenExpiry() time.Duration {
	return s.tokens.Expiry()
}

// RevokeToken removes a token from the active map, reporting whether it was active.
func (s *Service) RevokeToken(ctx context.Context, raw string) bool {
	revoked := s.tokens.Revoke(raw)
	if revoked {
		s.metrics.RecordTokens(ctx, "revoked", 1)
		s.logger.Info().Msg("session token revoked")
	}
	return revoked
}

// PurgeExpiredTokens drops expired tokens and returns how many went.
func (s *Service) PurgeExpiredTokens(ctx context.Context) int {
	removed, err := s.tokens.PurgeExpired()
	if err != nil {
		s.logger.Error().Err(err).Msg("purging expired tokens")
		return 0
	}
	if removed > 0 {
		s.metrics.RecordTokens(ctx, "purged", removed)
		s.logger.Info().Int("removed", removed).Msg("purged expired session tokens")
	}
	return removed
}

// SecurityStatus summarises the last hundred authentication attempts.
func (s *Service) SecurityStatus() SecurityStatus {
	entries := s.authLog.Recent(statusWindow)

	status := SecurityStatus{
		WhitelistSize:  s.whitelist.Len(),
		RecentAttempts: len(entries),
		Methods:        []string{},
		ActiveTokens:   s.tokens.ActiveCount(),
	}

	methods := map[string]struct{}{}
	for _, e := range entries {
		if !e.Authenticated {
			status.Failed++
			continue
		}
		status.Successful++
		methods[e.Method] = struct{}{}
		if e.Role == users.RoleMaster {
			status.MasterAuthentications++
			if status.LastMasterAuth == nil || e.Timestamp.After(*status.LastMasterAuth) {
				ts := e.Timestamp
				status.LastMasterAuth = &ts
			}
		}
	}
	for m := range methods {
		status.Methods = append(status.Methods, m)
	}
	sort.Strings(status.Methods)
	return status
}

// RecentLogs returns up to limit of the newest log entries, oldest first.
func (s *Service) RecentLogs(limit int) []authlog.Entry {
	return s.authLog.Recent(limit)
}

// ClearLogs empties the authentication log. Credentials and the whitelist are untouched.
func (s *Service) ClearLogs() int {
	cleared := s.authLog.Clear()
	s.logger.Warn().Int("cleared", cleared).Msg("authentication log cleared")
	return cleared
}

// Whitelist returns the whitelisted device identifiers.
func (s *Service) Whitelist() []string {
	return s.whitelist.List()
}

// AddDevice whitelists a device, reporting whether it was newly added.
func (s *Service) AddDevice(device string) bool {
	added := s.whitelist.Add(device)
	if added {
		s.logger.Info().Str("device", device).Msg("device added to master whitelist")
	}
	return added
}

// RemoveDevice drops a device from the whitelist, reporting whether it was present.
func (s *Service) RemoveDevice(device string) bool {
	removed := s.whitelist.Remove(device)
	if removed {
		s.logger.Info().Str("device", device).Msg("device removed from master whitelist")
	}
	return removed
}

// MasterUser is the privileged identity asserted by the passphrase and whitelisted devices.
func (s *Service) MasterUser() string {
	return s.masterUser
}
