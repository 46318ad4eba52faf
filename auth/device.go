package auth

import (
	"regexp"
	"strings"

	"github.com/jrsteele09/buddy-auth/credentials"
	"github.com/jrsteele09/buddy-auth/users"
)

const (
	deviceFamilyMarker = "iphone"
	genericDeviceModel = "iPhone_Generic"
)

var (
	deviceModelPattern = regexp.MustCompile(`(?i)iphone(\d+,\d+)`)

	// Raw device identifier headers, checked in order.
	deviceIDHeaders = []string{"x-device-id", "x-device-uuid", "x-unique-id", "device-id"}
)

// DeviceEvaluator recognises requests from the device family in the
// user-agent. Whitelisted devices assert the master identity; any other device
// of the family authenticates the claimed user at Standard trust.
type DeviceEvaluator struct {
	whitelist  *Whitelist
	masterUser string
}

var _ Evaluator = (*DeviceEvaluator)(nil)

func NewDeviceEvaluator(whitelist *Whitelist, masterUser string) *DeviceEvaluator {
	return &DeviceEvaluator{whitelist: whitelist, masterUser: masterUser}
}

func (e *DeviceEvaluator) Name() string { return "device" }

func (e *DeviceEvaluator) Evaluate(bundle credentials.Bundle) (*AuthResult, error) {
	userAgent := bundle.Headers.Get("user-agent")
	if !strings.Contains(strings.ToLower(userAgent), deviceFamilyMarker) {
		return nil, nil
	}

	model := DeviceModel(userAgent)
	if e.whitelist.Contains(model) {
		return e.master(MethodDeviceModel, model), nil
	}

	for _, header := range deviceIDHeaders {
		id := bundle.Headers.Get(header)
		if id != "" && e.whitelist.Contains(id) {
			return e.master(MethodDeviceID, id), nil
		}
	}

	return &AuthResult{
		Authenticated: true,
		UserID:        bundle.UserID,
		Role:          users.RoleStandard,
		Method:        MethodDeviceUnverified,
		DeviceID:      &model,
	}, nil
}

func (e *DeviceEvaluator) master(method, deviceID string) *AuthResult {
	return &AuthResult{
		Authenticated: true,
		UserID:        e.masterUser,
		Role:          users.RoleMaster,
		Method:        method,
		DeviceID:      &deviceID,
	}
}

// DeviceModel extracts the model identifier (e.g. "iPhone15,2") from a
// user-agent, falling back to a generic model for the family.
func DeviceModel(userAgent string) string {
	if m := deviceModelPattern.FindStringSubmatch(userAgent); m != nil {
		return "iPhone" + m[1]
	}
	return genericDeviceModel
}
