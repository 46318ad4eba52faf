package users_test

import (
	"testing"

	"github.com/jrsteele09/buddy-auth/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidateAdminKeyStrength(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{key: "Sh0rt", wantErr: true},
		{key: "alllowercase123", wantErr: true},
		{key: "ALLUPPERCASE123", wantErr: true},
		{key: "NoDigitsAnywhere", wantErr: true},
		{key: "Buddy4Arindam2026", wantErr: false},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			err := users.ValidateAdminKeyStrength(tc.key)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestAdminKeyHash(t *testing.T) {
	hash, err := users.HashAdminKey("Buddy4Arindam2026", bcrypt.MinCost)
	require.NoError(t, err)

	require.True(t, users.CheckAdminKeyHash("Buddy4Arindam2026", hash))
	require.False(t, users.CheckAdminKeyHash("buddy4arindam2026", hash))
	require.False(t, users.CheckAdminKeyHash("", hash))
	require.False(t, users.CheckAdminKeyHash("Buddy4Arindam2026", ""))
}

func TestCapabilities(t *testing.T) {
	require.Equal(t, []users.Capability{users.CapLimitedResponses}, users.Capabilities(users.RoleMaster, false))
	require.True(t, users.HasCapability(users.Capabilities(users.RoleMaster, true), users.CapManageWhitelist))
	require.False(t, users.HasCapability(users.Capabilities(users.RoleStandard, true), users.CapAdminCommands))
	require.Equal(t, []users.Capability{users.CapLimitedResponses, users.CapBasicInfo}, users.Capabilities(users.RoleUnknown, true))
}

func TestRoleText(t *testing.T) {
	text, err := users.RoleMaster.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "master", string(text))

	var r users.Role
	require.NoError(t, r.UnmarshalText([]byte(" Standard ")))
	require.Equal(t, users.RoleStandard, r)
	require.Error(t, r.UnmarshalText([]byte("root")))

	_, err = users.Role(9).MarshalText()
	require.Error(t, err)
}
