package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quailyquaily/opguard/auditstore"
	"github.com/quailyquaily/opguard/db"
	"github.com/quailyquaily/opguard/guard"
	"github.com/quailyquaily/opguard/internal/pathutil"
	"github.com/spf13/viper"
)

// runtime bundles the evaluator with the optional persistence adapters the
// CLI wires around it.
type runtime struct {
	log           *slog.Logger
	eval          *guard.Evaluator
	auditStore    *auditstore.GormStore
	confirmations guard.ConfirmationStore

	closers []func() error
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.log.Warn("runtime_close_failed", "error", err.Error())
		}
	}
}

func guardConfigFromViper() (guard.Config, error) {
	var patterns []guard.RegexPattern
	if err := viper.UnmarshalKey("redaction.patterns", &patterns); err != nil {
		return guard.Config{}, fmt.Errorf("redaction.patterns: %w", err)
	}
	return guard.Config{
		Policy: guard.PolicyConfig{
			RulesFile:      pathutil.ExpandHomePath(viper.GetString("policy.rules_file")),
			SensitivePaths: viper.GetStringSlice("policy.sensitive_paths"),
		},
		Redaction: guard.RedactionConfig{
			Enabled:  viper.GetBool("redaction.enabled"),
			Patterns: patterns,
		},
		Audit: guard.AuditConfig{
			Capacity:       viper.GetInt("audit.capacity"),
			JSONLPath:      pathutil.ExpandHomePath(viper.GetString("audit.jsonl_path")),
			RotateMaxBytes: viper.GetInt64("audit.rotate_max_bytes"),
			DBEnabled:      viper.GetBool("audit.db.enabled"),
		},
		Confirmations: guard.ConfirmationsConfig{
			Enabled: viper.GetBool("confirmations.enabled"),
			TTL:     viper.GetDuration("confirmations.ttl"),
		},
	}, nil
}

func dbConfigFromViper() db.Config {
	cfg := db.DefaultConfig()
	cfg.Driver = viper.GetString("db.driver")
	cfg.DSN = viper.GetString("db.dsn")
	cfg.AutoMigrate = viper.GetBool("db.automigrate")

	cfg.Pool.MaxOpenConns = atLeast(viper.GetInt("db.pool.max_open_conns"), 1)
	cfg.Pool.MaxIdleConns = atLeast(viper.GetInt("db.pool.max_idle_conns"), 1)
	if d := viper.GetDuration("db.pool.conn_max_lifetime"); d > 0 {
		cfg.Pool.ConnMaxLifetime = d
	}

	cfg.SQLite.BusyTimeoutMs = atLeast(viper.GetInt("db.sqlite.busy_timeout_ms"), 5000)
	cfg.SQLite.WAL = viper.GetBool("db.sqlite.wal")
	cfg.SQLite.ForeignKeys = viper.GetBool("db.sqlite.foreign_keys")
	return cfg
}

func atLeast(v, floor int) int {
	if v < floor {
		return floor
	}
	return v
}

// runtimeFromViper builds the evaluator and its adapters. Persistence
// failures degrade to warnings; only an unreadable rules file is fatal.
func runtimeFromViper(ctx context.Context, log *slog.Logger) (*runtime, error) {
	if log == nil {
		log = slog.Default()
	}
	cfg, err := guardConfigFromViper()
	if err != nil {
		return nil, err
	}
	rules, err := guard.LoadRulesFile(cfg.Policy.RulesFile)
	if err != nil {
		return nil, err
	}

	rt := &runtime{log: log}
	opts := []guard.Option{
		guard.WithLogger(log),
		guard.WithRules(rules),
		guard.WithAuditCapacity(cfg.Audit.Capacity),
		guard.WithRedactor(guard.NewRedactor(cfg.Redaction)),
	}

	if p := strings.TrimSpace(cfg.Audit.JSONLPath); p != "" {
		sink, err := guard.NewJSONLAuditSink(p, cfg.Audit.RotateMaxBytes)
		if err != nil {
			log.Warn("audit_jsonl_sink_error", "path", p, "error", err.Error())
		} else {
			opts = append(opts, guard.WithAuditSink(sink))
		}
	}

	if cfg.Audit.DBEnabled {
		gdb, err := db.Open(ctx, dbConfigFromViper())
		if err != nil {
			log.Warn("audit_db_open_error", "error", err.Error())
		} else {
			rt.auditStore = auditstore.NewGormStore(gdb)
			opts = append(opts, guard.WithAuditSink(rt.auditStore))
			if sqlDB, err := gdb.DB(); err == nil {
				rt.closers = append(rt.closers, sqlDB.Close)
			}
		}
	}

	if cfg.Confirmations.Enabled {
		dsn, err := db.ResolveSQLiteDSN(viper.GetString("db.dsn"))
		if err != nil {
			log.Warn("confirmations_dsn_error", "error", err.Error())
		} else if st, err := guard.NewSQLiteConfirmationStore(dsn, cfg.Confirmations.TTL); err != nil {
			log.Warn("confirmations_store_error", "error", err.Error())
		} else {
			rt.confirmations = st
			rt.closers = append(rt.closers, st.Close)
		}
	}

	rt.eval = guard.New(opts...)
	rt.eval.AddSensitivePatterns(cfg.Policy.SensitivePaths...)
	rt.closers = append(rt.closers, rt.eval.Close)

	log.Debug("guard_runtime_ready",
		"rules", len(rules),
		"sensitive_patterns", len(rt.eval.SensitivePatterns()),
		"audit_jsonl", cfg.Audit.JSONLPath,
		"audit_db", rt.auditStore != nil,
		"confirmations", rt.confirmations != nil,
	)
	return rt, nil
}

func sessionContext(ctx context.Context) context.Context {
	if sid := strings.TrimSpace(viper.GetString("session_id")); sid != "" {
		return guard.WithSessionID(ctx, sid)
	}
	return ctx
}
