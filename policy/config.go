package policy

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Constraint is a hard invariant independent of approval routing: tasks of
// class When must carry Flag.
type Constraint struct {
	When    string `json:"when" yaml:"when"`
	Flag    string `json:"flag" yaml:"flag"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Config represents the declarative policy rules.
type Config struct {
	ApprovalRequired   []string     `json:"approvalRequired" yaml:"approvalRequired"`
	AutoApprove        []string     `json:"autoApprove" yaml:"autoApprove"`
	FinancialKeywords  []string     `json:"financialKeywords" yaml:"financialKeywords"`
	LegalKeywords      []string     `json:"legalKeywords" yaml:"legalKeywords"`
	DefaultAutoApprove bool         `json:"defaultAutoApprove" yaml:"defaultAutoApprove"`
	Constraints        []Constraint `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// DefaultConfig returns the conservative built-in rule set.
func DefaultConfig() *Config {
	return &Config{
		ApprovalRequired:  []string{"financial", "legal", "contracts", "hiring", "pricing"},
		AutoApprove:       []string{"document_management", "reporting", "research", "content", "monitoring"},
		FinancialKeywords: []string{"payment", "transfer", "wire", "invoice", "refund", "payout", "bank"},
		LegalKeywords:     []string{"lawsuit", "litigation", "subpoena", "attorney", "settlement"},
		Constraints: []Constraint{
			{When: "financial", Flag: "dual_authorization", Message: "financial tasks require dual authorization"},
			{When: "legal", Flag: "compliance_reviewed", Message: "legal tasks must be compliance reviewed"},
		},
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() Config {
	return Config{
		ApprovalRequired:   append([]string(nil), c.ApprovalRequired...),
		AutoApprove:        append([]string(nil), c.AutoApprove...),
		FinancialKeywords:  append([]string(nil), c.FinancialKeywords...),
		LegalKeywords:      append([]string(nil), c.LegalKeywords...),
		DefaultAutoApprove: c.DefaultAutoApprove,
		Constraints:        append([]Constraint(nil), c.Constraints...),
	}
}

// Validate reports the first misconfiguration as a *ConfigError.
func (c *Config) Validate() error {
	required := toSet(c.ApprovalRequired)
	for _, category := range c.AutoApprove {
		if required[normalize(category)] {
			return &ConfigError{Field: "autoApprove", Message: fmt.Sprintf("category %q is also listed in approvalRequired", category)}
		}
	}
	lists := []struct {
		field  string
		values []string
	}{
		{"approvalRequired", c.ApprovalRequired},
		{"autoApprove", c.AutoApprove},
		{"financialKeywords", c.FinancialKeywords},
		{"legalKeywords", c.LegalKeywords},
	}
	for _, list := range lists {
		for i, v := range list.values {
			if strings.TrimSpace(v) == "" {
				return &ConfigError{Field: fmt.Sprintf("%s[%d]", list.field, i), Message: "must not be blank"}
			}
		}
	}
	for i, constraint := range c.Constraints {
		if strings.TrimSpace(constraint.When) == "" {
			return &ConfigError{Field: fmt.Sprintf("constraints[%d].when", i), Message: "is required"}
		}
		if strings.TrimSpace(constraint.Flag) == "" {
			return &ConfigError{Field: fmt.Sprintf("constraints[%d].flag", i), Message: "is required"}
		}
	}
	return nil
}

// ConfigError reports a policy misconfiguration. It is the only error class
// allowed to surface from task submission besides validation errors.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("policy config: %s %s", e.Field, e.Message)
}

// LoadConfig reads YAML rules from location (any afs URL) on top of
// DefaultConfig. Lists present in the file replace the defaults.
func LoadConfig(ctx context.Context, location string) (*Config, error) {
	return LoadConfigWithFS(ctx, afs.New(), location)
}

// LoadConfigWithFS reads YAML rules from location using fs. A missing
// location yields an error wrapping os.ErrNotExist.
func LoadConfigWithFS(ctx context.Context, fs afs.Service, location string) (*Config, error) {
	cfg := DefaultConfig()
	exists, err := fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("check policy %s: %w", location, err)
	}
	if !exists {
		return nil, fmt.Errorf("policy file %s: %w", location, os.ErrNotExist)
	}
	data, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("read policy %s: %w", location, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse policy %s: %w", location, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
