package users

// Capability names an action family an identity may use.
type Capability string

const (
	CapLimitedResponses     Capability = "limited_responses"
	CapBasicInfo            Capability = "basic_info"
	CapStandardChat         Capability = "standard_chat"
	CapPersonalHistory      Capability = "personal_history"
	CapBasicCommands        Capability = "basic_commands"
	CapFullAccess           Capability = "full_access"
	CapAdminCommands        Capability = "admin_commands"
	CapOverrideConversation Capability = "override_conversations"
	CapAccessAllHistories   Capability = "access_all_histories"
	CapSetUserPolicies      Capability = "set_user_policies"
	CapViewSecurityLogs     Capability = "view_security_logs"
	CapManageWhitelist      Capability = "manage_whitelist"
)

// Capabilities is a pure function of the authentication state and role.
func Capabilities(role Role, authenticated bool) []Capability {
	if !authenticated {
		return []Capability{CapLimitedResponses}
	}

	switch role {
	case RoleMaster:
		return []Capability{
			CapFullAccess,
			CapAdminCommands,
			CapOverrideConversation,
			CapAccessAllHistories,
			CapSetUserPolicies,
			CapViewSecurityLogs,
			CapManageWhitelist,
		}
	case RoleStandard:
		return []Capability{
			CapStandardChat,
			CapPersonalHistory,
			CapBasicCommands,
		}
	default:
		return []Capability{CapLimitedResponses, CapBasicInfo}
	}
}

// HasCapability reports whether caps contains c.
func HasCapability(caps []Capability, c Capability) bool {
	for _, have := range caps {
		if have == c {
			return true
		}
	}
	return false
}
