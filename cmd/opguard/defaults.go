package main

import (
	"time"

	"github.com/quailyquaily/opguard/guard"
	"github.com/spf13/viper"
)

func setDefaults() {
	viper.SetDefault("log.level", "warn")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("policy.rules_file", "")
	viper.SetDefault("policy.sensitive_paths", []string{})

	viper.SetDefault("audit.capacity", guard.DefaultAuditCapacity)
	viper.SetDefault("audit.jsonl_path", "~/.opguard/audit.jsonl")
	viper.SetDefault("audit.rotate_max_bytes", int64(100*1024*1024))
	viper.SetDefault("audit.db.enabled", true)

	viper.SetDefault("redaction.enabled", false)

	viper.SetDefault("confirmations.enabled", true)
	viper.SetDefault("confirmations.ttl", guard.DefaultConfirmationTTL)

	viper.SetDefault("db.driver", "sqlite")
	viper.SetDefault("db.dsn", "")
	viper.SetDefault("db.automigrate", true)
	viper.SetDefault("db.pool.max_open_conns", 1)
	viper.SetDefault("db.pool.max_idle_conns", 1)
	viper.SetDefault("db.pool.conn_max_lifetime", time.Duration(0))
	viper.SetDefault("db.sqlite.busy_timeout_ms", 5000)
	viper.SetDefault("db.sqlite.wal", true)
	viper.SetDefault("db.sqlite.foreign_keys", true)
}
