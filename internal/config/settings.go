package config

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
)

const (
	portEnvVar             = "PORT"
	appNameEnvVar          = "APP_NAME"
	envEnvVar              = "ENV"
	corsOriginsEnvVar      = "CORS_ORIGINS"
	masterUserEnvVar       = "MASTER_USER"
	passphraseEnvVar       = "MASTER_PASSPHRASE"
	masterDevicesEnvVar    = "MASTER_DEVICES"
	enableVoiceAuthEnvVar  = "ENABLE_VOICE_AUTH"
	enableDeviceAuthEnvVar = "ENABLE_DEVICE_AUTH"
	tokenSecretEnvVar      = "TOKEN_SECRET"
	tokenExpiryEnvVar      = "TOKEN_EXPIRY"
	adminKeyHashEnvVar     = "ADMIN_KEY_HASH"
	idleTimeoutEnvVar      = "SESSION_IDLE_TIMEOUT"
	endPhrasesEnvVar       = "SESSION_END_PHRASES"
	authLogCapacityEnvVar  = "AUTH_LOG_CAPACITY"

	maxIdleTimeout = 24 * time.Hour
)

// Settings is the resolved configuration. Durations are written as Go
// duration strings in YAML and the environment ("30s", "24h").
type Settings struct {
	Server  ServerSettings  `yaml:"server"`
	Auth    AuthSettings    `yaml:"auth"`
	Session SessionSettings `yaml:"session"`
	Audit   AuditSettings   `yaml:"audit"`
}

type ServerSettings struct {
	Port        string   `yaml:"port"`
	AppName     string   `yaml:"app_name"`
	Env         string   `yaml:"env"`
	CorsOrigins []string `yaml:"cors_origins"`
}

type AuthSettings struct {
	MasterUser       string        `yaml:"master_user"`
	Passphrase       string        `yaml:"passphrase"`
	MasterDevices    []string      `yaml:"master_devices"`
	EnableVoiceAuth  bool          `yaml:"enable_voice_auth"`
	EnableDeviceAuth bool          `yaml:"enable_device_auth"`
	TokenSecret      string        `yaml:"token_secret"` // empty: random per-process secret
	TokenExpiryRaw   string        `yaml:"token_expiry"`
	TokenExpiry      time.Duration `yaml:"-"`
	AdminKeyHash     string        `yaml:"admin_key_hash"` // bcrypt hash; empty disables whitelist mutation
}

type SessionSettings struct {
	IdleTimeoutRaw string        `yaml:"idle_timeout"`
	IdleTimeout    time.Duration `yaml:"-"`
	EndPhrases     []string      `yaml:"end_phrases"`
}

type AuditSettings struct {
	AuthLogCapacity int `yaml:"auth_log_capacity"`
}

// Defaults returns the stock configuration.
func Defaults() *Settings {
	return &Settings{
		Server: ServerSettings{
			Port:        "8080",
			AppName:     "Buddy",
			Env:         "DEV",
			CorsOrigins: []string{"*"},
		},
		Auth: AuthSettings{
			MasterUser: "Arindam",
			Passphrase: "happy birthday",
			MasterDevices: []string{
				"iPhone14,7", "iPhone14,2", "iPhone14,3",
				"iPhone15,2", "iPhone15,3",
				"iPhone16,1", "iPhone16,2",
			},
			EnableVoiceAuth:  true,
			EnableDeviceAuth: true,
			TokenExpiryRaw:   "24h",
		},
		Session: SessionSettings{
			IdleTimeoutRaw: "30s",
			EndPhrases: []string{
				"over and out", "goodbye buddy", "bye buddy", "see you later",
				"that's all", "done for now", "logout", "end session",
			},
		},
		Audit: AuditSettings{
			AuthLogCapacity: 1000,
		},
	}
}

// Device model ids contain commas ("iPhone15,2"), so MASTER_DEVICES is
// separated by semicolons or whitespace. Other lists are comma separated.
func isListComma(r rune) bool { return r == ',' }

func isDeviceSeparator(r rune) bool { return r == ';' || unicode.IsSpace(r) }

// applyEnv overrides settings with any variables lookup returns non-empty.
func (s *Settings) applyEnv(lookup func(string) string) error {
	setString(lookup, portEnvVar, &s.Server.Port)
	setString(lookup, appNameEnvVar, &s.Server.AppName)
	setString(lookup, envEnvVar, &s.Server.Env)
	setList(lookup, corsOriginsEnvVar, &s.Server.CorsOrigins, isListComma)

	setString(lookup, masterUserEnvVar, &s.Auth.MasterUser)
	setString(lookup, passphraseEnvVar, &s.Auth.Passphrase)
	setList(lookup, masterDevicesEnvVar, &s.Auth.MasterDevices, isDeviceSeparator)
	setString(lookup, tokenSecretEnvVar, &s.Auth.TokenSecret)
	setString(lookup, tokenExpiryEnvVar, &s.Auth.TokenExpiryRaw)
	setString(lookup, adminKeyHashEnvVar, &s.Auth.AdminKeyHash)

	setString(lookup, idleTimeoutEnvVar, &s.Session.IdleTimeoutRaw)
	setList(lookup, endPhrasesEnvVar, &s.Session.EndPhrases, isListComma)

	if err := setBool(lookup, enableVoiceAuthEnvVar, &s.Auth.EnableVoiceAuth); err != nil {
		return err
	}
	if err := setBool(lookup, enableDeviceAuthEnvVar, &s.Auth.EnableDeviceAuth); err != nil {
		return err
	}
	if v := lookup(authLogCapacityEnvVar); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "[Settings.applyEnv] parsing %s %q", authLogCapacityEnvVar, v)
		}
		s.Audit.AuthLogCapacity = n
	}
	return nil
}

// finalize parses durations and validates the result.
func (s *Settings) finalize() error {
	var err error
	if s.Auth.TokenExpiry, err = time.ParseDuration(s.Auth.TokenExpiryRaw); err != nil {
		return errors.Wrapf(err, "[Settings.finalize] parsing token_expiry %q", s.Auth.TokenExpiryRaw)
	}
	if s.Session.IdleTimeout, err = time.ParseDuration(s.Session.IdleTimeoutRaw); err != nil {
		return errors.Wrapf(err, "[Settings.finalize] parsing idle_timeout %q", s.Session.IdleTimeoutRaw)
	}
	return s.Validate()
}

// Validate returns the first problem found in the settings.
func (s *Settings) Validate() error {
	switch {
	case strings.TrimSpace(s.Auth.MasterUser) == "":
		return errors.New("[Settings.Validate] auth.master_user is required")
	case s.Auth.EnableVoiceAuth && strings.TrimSpace(s.Auth.Passphrase) == "":
		return errors.New("[Settings.Validate] auth.passphrase is required when voice auth is enabled")
	case s.Auth.TokenSecret != "" && len(s.Auth.TokenSecret) < 32:
		return errors.New("[Settings.Validate] auth.token_secret must be at least 32 bytes")
	case s.Auth.TokenExpiry <= 0:
		return errors.New("[Settings.Validate] auth.token_expiry must be positive")
	case s.Session.IdleTimeout <= 0 || s.Session.IdleTimeout > maxIdleTimeout:
		return errors.Errorf("[Settings.Validate] session.idle_timeout must be between 0 and %s", maxIdleTimeout)
	case len(s.Session.EndPhrases) == 0:
		return errors.New("[Settings.Validate] session.end_phrases must not be empty")
	case s.Audit.AuthLogCapacity <= 0:
		return errors.New("[Settings.Validate] audit.auth_log_capacity must be positive")
	}
	return nil
}

func setString(lookup func(string) string, key string, dst *string) {
	if v := lookup(key); v != "" {
		*dst = v
	}
}

func setList(lookup func(string) string, key string, dst *[]string, separator func(rune) bool) {
	v := lookup(key)
	if v == "" {
		return
	}
	var items []string
	for _, item := range strings.FieldsFunc(v, separator) {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*dst = items
}

func setBool(lookup func(string) string, key string, dst *bool) error {
	v := lookup(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return errors.Wrapf(err, "[setBool] parsing %s %q", key, v)
	}
	*dst = b
	return nil
}
