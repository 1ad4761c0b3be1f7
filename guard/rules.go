package guard

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

type RuleCategory string

const (
	CategoryDestructiveCommand RuleCategory = "destructive_command"
	CategorySensitivePath      RuleCategory = "sensitive_path"
)

// Rule is one row of the policy table. Destructive rules hold a regular
// expression matched against the lower-cased command; sensitive rules hold a
// path fragment matched by substring containment.
type Rule struct {
	Name        string       `yaml:"name"`
	Category    RuleCategory `yaml:"category"`
	Pattern     string       `yaml:"pattern"`
	Description string       `yaml:"description,omitempty"`
}

// RulesFile is the on-disk rule table.
type RulesFile struct {
	ReplaceDefaults bool   `yaml:"replace_defaults"`
	Rules           []Rule `yaml:"rules"`
}

// DefaultRules returns a fresh copy of the built-in policy table.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "rm_recursive_force", Category: CategoryDestructiveCommand, Pattern: `\brm\s+-[a-z]*(rf|fr)`, Description: "recursive forced delete"},
		{Name: "rm_wildcard", Category: CategoryDestructiveCommand, Pattern: `\brm\s+.*\*`, Description: "wildcard delete"},
		{Name: "mkfs", Category: CategoryDestructiveCommand, Pattern: `\bmkfs\.`, Description: "filesystem format"},
		{Name: "dd_raw_write", Category: CategoryDestructiveCommand, Pattern: `\bdd\s+if=`, Description: "raw block device write"},
		{Name: "git_force_push", Category: CategoryDestructiveCommand, Pattern: `\bgit\s+push\b.*\s(--force|-f)\b`, Description: "forced push rewriting remote history"},
		{Name: "git_reset_hard", Category: CategoryDestructiveCommand, Pattern: `\bgit\s+reset\s+--hard\b`, Description: "hard reset discarding work"},
		{Name: "mv_directory", Category: CategoryDestructiveCommand, Pattern: `\bmv\s+\S+/\s+\S+`, Description: "directory moved out of place"},
		{Name: "rmdir", Category: CategoryDestructiveCommand, Pattern: `\brmdir\b`, Description: "directory removal"},
		{Name: "redirect_etc", Category: CategoryDestructiveCommand, Pattern: `>\s*/etc/`, Description: "output redirected into system config"},
		{Name: "redirect_home", Category: CategoryDestructiveCommand, Pattern: `>\s*~/`, Description: "output redirected into the home directory"},

		{Name: "dotenv", Category: CategorySensitivePath, Pattern: ".env"},
		{Name: "dotenv_local", Category: CategorySensitivePath, Pattern: ".env.local"},
		{Name: "soul_md", Category: CategorySensitivePath, Pattern: "soul.md"},
		{Name: "memory_md", Category: CategorySensitivePath, Pattern: "memory.md"},
		{Name: "user_md", Category: CategorySensitivePath, Pattern: "user.md"},
		{Name: "git_dir", Category: CategorySensitivePath, Pattern: ".git/"},
		{Name: "node_modules", Category: CategorySensitivePath, Pattern: "node_modules/"},
		{Name: "npm_lockfile", Category: CategorySensitivePath, Pattern: "package-lock.json"},
	}
}

// LoadRulesFile reads a YAML rule table and merges it with the defaults unless
// the file sets replace_defaults.
func LoadRulesFile(path string) ([]Rule, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

func ParseRules(data []byte) ([]Rule, error) {
	var f RulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	for i := range f.Rules {
		r, err := normalizeRule(f.Rules[i])
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		f.Rules[i] = r
	}
	if f.ReplaceDefaults {
		return f.Rules, nil
	}
	return append(DefaultRules(), f.Rules...), nil
}

func normalizeRule(r Rule) (Rule, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Pattern = strings.TrimSpace(r.Pattern)
	r.Category = RuleCategory(strings.ToLower(strings.TrimSpace(string(r.Category))))
	if r.Pattern == "" {
		return Rule{}, fmt.Errorf("missing pattern")
	}
	switch r.Category {
	case CategoryDestructiveCommand:
		if _, err := regexp.Compile("(?i)" + r.Pattern); err != nil {
			return Rule{}, fmt.Errorf("invalid pattern %q: %w", r.Pattern, err)
		}
	case CategorySensitivePath:
	default:
		return Rule{}, fmt.Errorf("unknown category %q", r.Category)
	}
	if r.Name == "" {
		r.Name = string(r.Category) + ":" + r.Pattern
	}
	return r, nil
}

type destructiveRule struct {
	name    string
	pattern string
	re      *regexp.Regexp
}

type sensitiveRule struct {
	name     string
	fragment string
}

// compileRules splits a rule table by category. Rules that fail to compile
// are returned in skipped so the caller can log them.
func compileRules(rules []Rule) (destructive []destructiveRule, sensitive []sensitiveRule, skipped []Rule) {
	for _, raw := range rules {
		r, err := normalizeRule(raw)
		if err != nil {
			skipped = append(skipped, raw)
			continue
		}
		switch r.Category {
		case CategoryDestructiveCommand:
			re, err := regexp.Compile("(?i)" + r.Pattern)
			if err != nil {
				skipped = append(skipped, r)
				continue
			}
			destructive = append(destructive, destructiveRule{name: r.Name, pattern: r.Pattern, re: re})
		case CategorySensitivePath:
			sensitive = append(sensitive, sensitiveRule{name: r.Name, fragment: strings.ToLower(r.Pattern)})
		}
	}
	return destructive, sensitive, skipped
}
