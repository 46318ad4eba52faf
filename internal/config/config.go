package config

import (
	"os"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config interface {
	EnvConfig
	AuthConfig
	SessionConfig
	CorsConfig
	AuditConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

type AuthConfig interface {
	GetMasterUser() string
	GetPassphrase() string
	GetMasterDevices() []string
	GetEnableVoiceAuth() bool
	GetEnableDeviceAuth() bool
	GetTokenSecret() string
	GetTokenExpiry() time.Duration
	GetAdminKeyHash() string
}

type SessionConfig interface {
	GetSessionIdleTimeout() time.Duration
	GetSessionEndPhrases() []string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() []string
	GetAllowedHeaders() []string
}

type AuditConfig interface {
	GetAuthLogCapacity() int
}

type mainConfig struct {
	settings *Settings
}

var _ Config = mainConfig{}

// New returns the defaults overlaid with environment variables.
func New() (Config, error) {
	s := Defaults()
	if err := s.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := s.finalize(); err != nil {
		return nil, err
	}
	return mainConfig{settings: s}, nil
}

// Load layers defaults, the YAML file at path (with ${VAR} references
// expanded) and environment variables, in that order.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "[Load] reading config file")
	}

	s := Defaults()
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), s); err != nil {
		return nil, errors.Wrap(err, "[Load] parsing config file")
	}
	if err := s.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := s.finalize(); err != nil {
		return nil, err
	}
	return mainConfig{settings: s}, nil
}

var envRefPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value, or "" when unset.
func expandEnvVars(s string) string {
	return envRefPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envRefPattern.FindStringSubmatch(match)[1])
	})
}

func (c mainConfig) GetPort() string {
	port := c.settings.Server.Port
	if port != "" && port[0] != ':' {
		port = ":" + port
	}
	return port
}

func (c mainConfig) GetAppName() string { return c.settings.Server.AppName }

func (c mainConfig) GetEnv() string { return c.settings.Server.Env }

func (c mainConfig) GetMasterUser() string { return c.settings.Auth.MasterUser }

func (c mainConfig) GetPassphrase() string { return c.settings.Auth.Passphrase }

func (c mainConfig) GetMasterDevices() []string {
	return append([]string(nil), c.settings.Auth.MasterDevices...)
}

func (c mainConfig) GetEnableVoiceAuth() bool { return c.settings.Auth.EnableVoiceAuth }

func (c mainConfig) GetEnableDeviceAuth() bool { return c.settings.Auth.EnableDeviceAuth }

func (c mainConfig) GetTokenSecret() string { return c.settings.Auth.TokenSecret }

func (c mainConfig) GetTokenExpiry() time.Duration { return c.settings.Auth.TokenExpiry }

func (c mainConfig) GetAdminKeyHash() string { return c.settings.Auth.AdminKeyHash }

func (c mainConfig) GetSessionIdleTimeout() time.Duration { return c.settings.Session.IdleTimeout }

func (c mainConfig) GetSessionEndPhrases() []string {
	return append([]string(nil), c.settings.Session.EndPhrases...)
}

func (c mainConfig) GetAllowedOrigins() AllowedOrigins {
	return NewAllowedOrigins(c.settings.Server.CorsOrigins...)
}

func (c mainConfig) GetAllowedMethods() []string {
	return []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
}

func (c mainConfig) GetAllowedHeaders() []string {
	return []string{"Content-Type", "Authorization", "X-Admin-Key", "X-User-ID", "X-Device-ID"}
}

func (c mainConfig) GetAuthLogCapacity() int { return c.settings.Audit.AuthLogCapacity }
