package guard

import "time"

type Config struct {
	Policy    PolicyConfig
	Redaction RedactionConfig

	Audit         AuditConfig
	Confirmations ConfirmationsConfig
}

type PolicyConfig struct {
	// RulesFile is an optional YAML rule table merged over the defaults.
	RulesFile string
	// SensitivePaths are extra path fragments registered at startup.
	SensitivePaths []string
}

type RedactionConfig struct {
	Enabled  bool
	Patterns []RegexPattern
}

type RegexPattern struct {
	Name string `mapstructure:"name" yaml:"name"`
	Re   string `mapstructure:"re" yaml:"re"`
}

type AuditConfig struct {
	Capacity       int
	JSONLPath      string
	RotateMaxBytes int64
	DBEnabled      bool
}

type ConfirmationsConfig struct {
	Enabled bool
	TTL     time.Duration
}
