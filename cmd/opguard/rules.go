package main

import (
	"strings"

	"github.com/quailyquaily/opguard/guard"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the effective rule table as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules, err := effectiveRules()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(guard.RulesFile{ReplaceDefaults: true, Rules: rules}); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

// effectiveRules is the configured rule table plus policy.sensitive_paths,
// without opening any stores.
func effectiveRules() ([]guard.Rule, error) {
	cfg, err := guardConfigFromViper()
	if err != nil {
		return nil, err
	}
	rules, err := guard.LoadRulesFile(cfg.Policy.RulesFile)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, r := range rules {
		if r.Category == guard.CategorySensitivePath {
			seen[r.Pattern] = true
		}
	}
	for _, p := range cfg.Policy.SensitivePaths {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		rules = append(rules, guard.Rule{Name: "custom:" + p, Category: guard.CategorySensitivePath, Pattern: p})
	}
	return rules, nil
}
