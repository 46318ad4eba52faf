package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/buddy-auth/internal/errors"
	"github.com/jrsteele09/buddy-auth/users"
	"github.com/pkg/errors"
)

const (
	defaultTokenExpiry = 24 * time.Hour
	defaultIssuer      = "buddy"
)

// Manager issues, validates and revokes session tokens. Validation is a dual
// check: the JWT must verify under the signer AND its record must still be
// present in the repo.
type Manager struct {
	repo    Repo
	signer  Signer
	issuer  string
	expiry  time.Duration
	nowFunc func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(expiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.expiry = expiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func New(repo Repo, signer Signer, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:   repo,
		signer: signer,
	}

	for _, opt := range options {
		opt(m)
	}

	if m.expiry <= 0 {
		m.expiry = defaultTokenExpiry
	}
	if m.issuer == "" {
		m.issuer = defaultIssuer
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// Issue signs a token for the identity and records it as active.
func (m *Manager) Issue(userID string, role users.Role, deviceID *string, method string) (*Record, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidInput, "[Manager.Issue] user id required")
	}

	now := m.nowFunc()
	expiresAt := now.Add(m.expiry)
	jti := uuid.New().String()

	claims := jwt.MapClaims{
		"iss":    m.issuer,
		"sub":    userID,
		"role":   role.String(),
		"method": method,
		"iat":    now.Unix(),
		"exp":    expiresAt.Unix(),
		"jti":    jti,
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Issue] sign")
	}

	record := &Record{
		Token:     signed,
		ID:        jti,
		UserID:    userID,
		Role:      role,
		DeviceID:  deviceID,
		Method:    method,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}
	if err := m.repo.Upsert(record); err != nil {
		return nil, errors.Wrap(err, "[Manager.Issue] repo.Upsert")
	}
	return record, nil
}

// Validate returns the active record for rawToken. The returned record's
// UserID comes from the verified token payload. Expired tokens are removed
// from the active map as a side effect.
func (m *Manager) Validate(rawToken string) (*Record, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, apperrors.ErrInvalidToken
	}

	parsed, err := jwt.Parse(rawToken, m.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(m.nowFunc),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(m.issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			_ = m.repo.Delete(rawToken)
			return nil, apperrors.ErrTokenExpired
		}
		return nil, errors.Wrap(apperrors.ErrInvalidToken, err.Error())
	}
	if !parsed.Valid {
		return nil, apperrors.ErrInvalidToken
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil || subject == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "missing subject")
	}

	record, err := m.repo.Get(rawToken)
	if err != nil {
		return nil, apperrors.ErrTokenRevoked
	}
	if record.Expired(m.nowFunc()) {
		_ = m.repo.Delete(rawToken)
		return nil, apperrors.ErrTokenExpired
	}

	record.UserID = subject
	return record, nil
}

// Revoke removes a token from the active map. It reports whether the token was active.
func (m *Manager) Revoke(rawToken string) bool {
	return m.repo.Delete(rawToken) == nil
}

// PurgeExpired drops every record past its expiry.
func (m *Manager) PurgeExpired() (int, error) {
	removed, err := m.repo.DeleteExpired(m.nowFunc())
	if err != nil {
		return 0, errors.Wrap(err, "[Manager.PurgeExpired] repo.DeleteExpired")
	}
	return removed, nil
}

// ActiveCount returns the number of tokens in the active map.
func (m *Manager) ActiveCount() int {
	return m.repo.Count()
}

// Expiry returns the lifetime given to newly issued tokens.
func (m *Manager) Expiry() time.Duration {
	return m.expiry
}
