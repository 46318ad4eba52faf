package token_test

import (
	"strings"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/buddy-auth/internal/errors"
	"github.com/jrsteele09/buddy-auth/internal/utils"
	"github.com/jrsteele09/buddy-auth/token"
	"github.com/jrsteele09/buddy-auth/users"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newManager(t *testing.T, repo token.Repo, c *clock) *token.Manager {
	t.Helper()
	return token.New(repo, token.NewHMACSigner(testSecret),
		token.WithNowFunc(c.Now),
		token.WithTokenExpiry(time.Hour),
	)
}

func TestManager_IssueAndValidate(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	repo := token.NewInMemoryRepo()
	m := newManager(t, repo, c)

	record, err := m.Issue("Arindam", users.RoleMaster, utils.Ptr("iPhone15,2"), "passphrase")
	require.NoError(t, err)
	require.NotEmpty(t, record.Token)
	require.NotEmpty(t, record.ID)
	require.Equal(t, c.now.Add(time.Hour), record.ExpiresAt)
	require.Equal(t, 1, m.ActiveCount())

	validated, err := m.Validate(record.Token)
	require.NoError(t, err)
	require.Equal(t, "Arindam", validated.UserID)
	require.Equal(t, users.RoleMaster, validated.Role)
	require.Equal(t, "passphrase", validated.Method)
	require.Equal(t, "iPhone15,2", utils.Value(validated.DeviceID))
}

func TestManager_IssueRequiresUser(t *testing.T) {
	c := &clock{now: time.Now()}
	m := newManager(t, token.NewInMemoryRepo(), c)

	_, err := m.Issue("  ", users.RoleMaster, nil, "passphrase")
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestManager_RevokeIsImmediate(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	m := newManager(t, token.NewInMemoryRepo(), c)

	record, err := m.Issue("Arindam", users.RoleMaster, nil, "passphrase")
	require.NoError(t, err)

	_, err = m.Validate(record.Token)
	require.NoError(t, err)

	require.True(t, m.Revoke(record.Token))
	require.False(t, m.Revoke(record.Token))

	_, err = m.Validate(record.Token)
	require.ErrorIs(t, err, apperrors.ErrTokenRevoked)
	require.Equal(t, 0, m.ActiveCount())
}

func TestManager_ExpiredTokenIsRemoved(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	repo := token.NewInMemoryRepo()
	m := newManager(t, repo, c)

	record, err := m.Issue("Arindam", users.RoleMaster, nil, "passphrase")
	require.NoError(t, err)

	c.Advance(2 * time.Hour)

	_, err = m.Validate(record.Token)
	require.ErrorIs(t, err, apperrors.ErrTokenExpired)

	_, err = repo.Get(record.Token)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestManager_ForeignSignatureRejected(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	repo := token.NewInMemoryRepo()
	m := newManager(t, repo, c)

	other := token.New(repo, token.NewHMACSigner(strings.Repeat("z", 32)), token.WithNowFunc(c.Now))
	record, err := other.Issue("Arindam", users.RoleMaster, nil, "passphrase")
	require.NoError(t, err)

	_, err = m.Validate(record.Token)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)

	_, err = m.Validate("not-a-jwt")
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)

	_, err = m.Validate("")
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestManager_ValidSignatureWithoutRecordIsRevoked(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	issuer := newManager(t, token.NewInMemoryRepo(), c)
	verifier := newManager(t, token.NewInMemoryRepo(), c)

	record, err := issuer.Issue("Arindam", users.RoleMaster, nil, "passphrase")
	require.NoError(t, err)

	_, err = verifier.Validate(record.Token)
	require.ErrorIs(t, err, apperrors.ErrTokenRevoked)
}

func TestManager_PurgeExpired(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	m := newManager(t, token.NewInMemoryRepo(), c)

	_, err := m.Issue("first", users.RoleMaster, nil, "passphrase")
	require.NoError(t, err)
	c.Advance(30 * time.Minute)
	_, err = m.Issue("second", users.RoleMaster, nil, "passphrase")
	require.NoError(t, err)

	c.Advance(45 * time.Minute)
	removed, err := m.PurgeExpired()
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.Equal(t, 1, m.ActiveCount())
}

func TestInMemoryRepo_List(t *testing.T) {
	repo := token.NewInMemoryRepo()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, name := range []string{"c", "a", "b"} {
		require.NoError(t, repo.Upsert(&token.Record{
			Token:    name,
			IssuedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := repo.List(0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "c", all[0].Token)

	page, err := repo.List(1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "a", page[0].Token)

	empty, err := repo.List(5, 1)
	require.NoError(t, err)
	require.Empty(t, empty)

	require.ErrorIs(t, repo.Upsert(&token.Record{}), apperrors.ErrInvalidInput)
}

func TestNewSigner(t *testing.T) {
	_, err := token.NewSigner("short")
	require.Error(t, err)

	s, err := token.NewSigner("")
	require.NoError(t, err)
	require.Equal(t, "HS256", s.GetSigningMethod().Alg())

	s, err = token.NewSigner(testSecret)
	require.NoError(t, err)
	require.NotNil(t, s)
}
