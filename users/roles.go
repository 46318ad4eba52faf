package users

import (
	"fmt"
	"strings"
)

// Role is the trust level granted to an authenticated identity.
type Role uint8

const (
	RoleUnknown  Role = iota // No verified identity
	RoleStandard             // Authenticated, lesser trust (e.g. an unverified device)
	RoleMaster               // The single privileged identity
)

var roleNames = map[Role]string{
	RoleUnknown:  "unknown",
	RoleStandard: "standard",
	RoleMaster:   "master",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// ParseRole maps a role name back to a Role.
func ParseRole(name string) (Role, error) {
	for role, roleName := range roleNames {
		if strings.EqualFold(strings.TrimSpace(name), roleName) {
			return role, nil
		}
	}
	return RoleUnknown, fmt.Errorf("unknown role %q", name)
}

func (r Role) MarshalText() ([]byte, error) {
	if _, ok := roleNames[r]; !ok {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}
