package auth

import (
	"time"

	"github.com/jrsteele09/buddy-auth/users"
)

// Authentication methods recorded on a claim.
const (
	MethodToken            = "jwt_token"
	MethodPassphrase       = "passphrase"
	MethodDeviceModel      = "device_iphone"
	MethodDeviceID         = "device_id"
	MethodDeviceUnverified = "device_iphone_unverified"
	MethodNone             = "none"
)

// AuthResult is the identity claim produced once per request. It is a value
// type; callers copy it rather than mutate a shared instance.
type AuthResult struct {
	Authenticated bool       `json:"authenticated"`
	UserID        string     `json:"user_id"`
	Role          users.Role `json:"role"`
	Method        string     `json:"method"`
	DeviceID      *string    `json:"device_id,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}

// Anonymous is the explicit negative claim returned when every evaluator abstains.
func Anonymous(userID string, now time.Time) AuthResult {
	return AuthResult{
		Authenticated: false,
		UserID:        userID,
		Role:          users.RoleUnknown,
		Method:        MethodNone,
		Timestamp:     now,
	}
}

// IsMaster reports whether the claim carries the privileged identity.
func (r AuthResult) IsMaster() bool {
	return r.Authenticated && r.Role == users.RoleMaster
}

// Capabilities returns the capability set for the claim.
func (r AuthResult) Capabilities() []users.Capability {
	return users.Capabilities(r.Role, r.Authenticated)
}
